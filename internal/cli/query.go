package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	admsession "github.com/imoveisdeluxo/admsession"
	"github.com/imoveisdeluxo/admsession/credential"
	"github.com/imoveisdeluxo/admsession/graphql"
	"github.com/imoveisdeluxo/admsession/transport"
)

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		query     string
		file      string
		variables string
		operation string
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run a GraphQL operation with the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (query == "") == (file == "") {
				return errors.New("exactly one of --query or --file is required")
			}
			if file != "" {
				b, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				query = string(b)
			}

			req := graphql.Request{Query: query, OperationName: operation}
			if variables != "" {
				if err := json.Unmarshal([]byte(variables), &req.Variables); err != nil {
					return fmt.Errorf("--variables: %w", err)
				}
			}

			console, cfg, err := openConsole(cmd, rootOpts, nil)
			if err != nil {
				return err
			}
			defer console.Close()

			if cfg.API.GraphQLURL == "" {
				return errors.New("no GraphQL endpoint configured")
			}
			client := newStoreGraphQLClient(cfg, console.CredentialStore())

			var data json.RawMessage
			err = client.Do(cmd.Context(), req, &data)
			if errors.Is(err, graphql.ErrUnauthorized) {
				return errors.New("session rejected by the API: sign in again")
			}
			if len(data) > 0 {
				if werr := writeJSON(cmd.OutOrStdout(), data); werr != nil {
					return werr
				}
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "GraphQL document")
	cmd.Flags().StringVarP(&file, "file", "f", "", "file holding the GraphQL document")
	cmd.Flags().StringVar(&variables, "variables", "", "variables as a JSON object")
	cmd.Flags().StringVar(&operation, "operation", "", "operation name")

	return cmd
}

// newStoreGraphQLClient reads the bearer token from store on every send, so a
// sign-out by another admconsole process applies to the next request.
func newStoreGraphQLClient(cfg admsession.Config, store credential.Store) *graphql.Client {
	httpClient := transport.NewChain(
		transport.RequestID(),
		transport.Bearer(transport.StoreTokenSource{Store: store}),
	).Client(nil)
	httpClient.Timeout = cfg.API.Timeout
	return graphql.New(cfg.API.GraphQLURL, httpClient)
}
