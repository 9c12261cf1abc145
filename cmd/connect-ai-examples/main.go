package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/app-sre/connect-ai/pkg/client"
	"github.com/app-sre/connect-ai/pkg/env"
	"github.com/app-sre/connect-ai/pkg/env/credentials"
	"github.com/app-sre/connect-ai/pkg/format"
	"github.com/app-sre/connect-ai/pkg/models"
)

const crossSystemQuery = `
	SELECT
		a.Name AS AccountName,
		a.AnnualRevenue,
		COUNT(t.Id) AS TotalTickets
	FROM Salesforce_Integraite.Salesforce.Account a
	LEFT JOIN Zendesk_Integraite.Zendesk.Tickets t
		ON a.Id = t.AccountId
	WHERE a.AnnualRevenue IS NOT NULL
	GROUP BY a.Name, a.AnnualRevenue
	ORDER BY a.AnnualRevenue DESC
	LIMIT 10
`

func banner(title string) {
	line := strings.Repeat("=", 60)
	fmt.Printf("\n%s\n%s\n%s\n", line, title, line)
}

func listConnections(ctx context.Context, c *client.Client) ([]models.Catalog, error) {
	banner("EXAMPLE: List Available Connections")

	catalogs, err := c.ListCatalogs(ctx)
	if err != nil {
		return nil, err
	}

	fmt.Printf("\nFound %d connections:\n", len(catalogs))
	for _, catalog := range catalogs {
		fmt.Printf("  - %s\n", catalog.CatalogName)
	}

	return catalogs, nil
}

func exploreSchema(ctx context.Context, c *client.Client, catalog string) error {
	banner(fmt.Sprintf("EXAMPLE: Explore Schema - %s", catalog))

	schemas, err := c.ListSchemas(ctx, models.SchemaFilter{Catalog: catalog})
	if err != nil {
		return err
	}

	fmt.Printf("\nSchemas in %s:\n", catalog)
	for _, schema := range schemas {
		fmt.Printf("  - %s\n", schema.SchemaName)
	}
	if len(schemas) == 0 {
		return nil
	}

	schema := schemas[0].SchemaName
	tables, err := c.ListTables(ctx, models.TableFilter{Catalog: catalog, Schema: schema})
	if err != nil {
		return err
	}

	fmt.Printf("\nFirst 10 tables in %s.%s:\n", catalog, schema)
	for _, table := range tables[:min(10, len(tables))] {
		fmt.Printf("  - %s (%s)\n", table.TableName, table.TableType)
	}

	return nil
}

func simpleQuery(ctx context.Context, c *client.Client, catalog, schema, table string) error {
	banner("EXAMPLE: Simple Query")

	query := fmt.Sprintf("SELECT * FROM %s.%s.%s LIMIT 5", catalog, schema, table)
	fmt.Printf("\nQuery: %s\n\n", query)

	result, err := c.Query(ctx, models.NewQueryRequest(query))
	if err != nil {
		return err
	}
	fmt.Println(format.ToTextTable(result))

	return nil
}

func crossSystem(ctx context.Context, c *client.Client) error {
	banner("EXAMPLE: Cross-System Query (Salesforce + Zendesk)")
	fmt.Printf("Query: %s\n\n", crossSystemQuery)

	result, err := c.Query(ctx, models.NewQueryRequest(crossSystemQuery))
	if err != nil {
		return err
	}

	content, err := format.CompactJSON(result)
	if err != nil {
		return err
	}
	fmt.Println("Results (compact JSON):")
	fmt.Println(string(content))

	return nil
}

func aggregation(ctx context.Context, c *client.Client, catalog, schema string) error {
	banner("EXAMPLE: Aggregation Query")

	query := fmt.Sprintf(`
	SELECT
		Status,
		COUNT(*) as Count
	FROM %s.%s.Tickets
	GROUP BY Status
	ORDER BY Count DESC
`, catalog, schema)
	fmt.Printf("Query: %s\n\n", query)

	result, err := c.Query(ctx, models.NewQueryRequest(query))
	if err != nil {
		return err
	}

	fmt.Println("Results (formatted table):")
	fmt.Println(format.ToTextTable(result))

	return nil
}

func run(ctx context.Context, c *client.Client) error {
	catalogs, err := listConnections(ctx, c)
	if err != nil {
		return fmt.Errorf("unable to list connections: %w", err)
	}

	if len(catalogs) > 0 {
		if err := exploreSchema(ctx, c, catalogs[0].CatalogName); err != nil {
			return fmt.Errorf("unable to explore schema: %w", err)
		}
	}

	if err := simpleQuery(ctx, c, "Salesforce_Integraite", "Salesforce", "Account"); err != nil {
		return fmt.Errorf("unable to run simple query: %w", err)
	}
	if err := crossSystem(ctx, c); err != nil {
		return fmt.Errorf("unable to run cross-system query: %w", err)
	}
	if err := aggregation(ctx, c, "Zendesk_Integraite", "Zendesk"); err != nil {
		return fmt.Errorf("unable to run aggregation query: %w", err)
	}

	return nil
}

func main() {
	if _, err := credentials.Load(); err != nil {
		var envErr *env.Error
		if errors.As(err, &envErr) {
			fmt.Println("Please set CONNECT_AI_EMAIL and CONNECT_AI_TOKEN environment variables")
			fmt.Println("\nExample:")
			fmt.Println(`  export CONNECT_AI_EMAIL="your-email@example.com"`)
			fmt.Println(`  export CONNECT_AI_TOKEN="your-token-here"`)
			os.Exit(1)
		}
	}

	l, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Unable to initialize Zap logger: %s", err)
	}
	defer func() { _ = l.Sync() }()

	logger := l.Sugar()

	c := client.New(client.WithLogger(logger))
	if err := run(context.Background(), c); err != nil {
		logger.Fatalf("Examples failed: %s", err)
	}

	banner("All examples completed successfully!")
}
