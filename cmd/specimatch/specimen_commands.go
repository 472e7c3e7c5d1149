package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"specimatch/internal/config"
	"specimatch/internal/ingest"
	"specimatch/internal/specimen"
)

func newSpecimensCommand(ctx *commandContext) *cobra.Command {
	specimensCmd := &cobra.Command{
		Use:   "specimens",
		Short: "Manage the specimen registry",
	}

	specimensCmd.AddCommand(newSpecimenAddCommand(ctx))
	specimensCmd.AddCommand(newSpecimenListCommand(ctx))
	specimensCmd.AddCommand(newSpecimenImportCommand(ctx))

	return specimensCmd
}

func newSpecimenAddCommand(ctx *commandContext) *cobra.Command {
	var projectID string
	var specimenNumber string
	var tubeID string
	var metaPairs []string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a single specimen",
		RunE: func(cmd *cobra.Command, args []string) error {
			metadata, err := parseMetaFlags(metaPairs)
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *specimen.Store) error {
				return withWriteLock(cfg, func() error {
					created, err := store.Insert(cmd.Context(), specimen.Specimen{
						ProjectID:      projectID,
						SpecimenNumber: specimenNumber,
						TubeID:         tubeID,
						Metadata:       metadata,
					})
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Registered specimen %s in project %s\n", created.ID, created.ProjectID)
					return nil
				})
			})
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "P", "", "Project the specimen belongs to")
	cmd.Flags().StringVarP(&specimenNumber, "number", "n", "", "Specimen number")
	cmd.Flags().StringVarP(&tubeID, "tube", "t", "", "Tube identifier")
	cmd.Flags().StringArrayVarP(&metaPairs, "meta", "m", nil, "Metadata entry as key=value (repeatable)")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func newSpecimenListCommand(ctx *commandContext) *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List specimens in registry order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *specimen.Store) error {
				specimens, err := store.ListByProject(cmd.Context(), projectID)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(specimens) == 0 {
					fmt.Fprintf(out, "No specimens registered for project %s\n", projectID)
					return nil
				}

				fmt.Fprintln(out, renderSpecimenTable(specimens))
				fmt.Fprintf(out, "%d specimen(s)\n", len(specimens))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "P", "", "Project to list")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func newSpecimenImportCommand(ctx *commandContext) *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Bulk-register specimens from a delimited file",
		Long: `Import reads a delimited file (comma, semicolon, tab, or pipe) and registers
one specimen per row. Columns named specimen_number and tube_id populate the
matching fields; every other column is stored as specimen metadata.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, err := ingest.ReadFile(args[0])
			if err != nil {
				return err
			}
			if len(rs.Rows) == 0 {
				return fmt.Errorf("%s contains no data rows", args[0])
			}

			return ctx.withStore(func(cfg *config.Config, store *specimen.Store) error {
				return withWriteLock(cfg, func() error {
					imported := 0
					for i, row := range rs.Rows {
						sp := specimen.Specimen{
							ProjectID:      projectID,
							SpecimenNumber: strings.TrimSpace(row.Value("specimen_number")),
							TubeID:         strings.TrimSpace(row.Value("tube_id")),
							Metadata:       importMetadata(row),
						}
						if _, err := store.Insert(cmd.Context(), sp); err != nil {
							return fmt.Errorf("import row %d: %w", i+2, err)
						}
						imported++
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Imported %d specimen(s) into project %s\n", imported, projectID)
					return nil
				})
			})
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "P", "", "Project to import into")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func importMetadata(row ingest.Row) map[string]string {
	metadata := make(map[string]string)
	for _, header := range row.Headers {
		if header == "" || header == "specimen_number" || header == "tube_id" {
			continue
		}
		metadata[header] = row.Value(header)
	}
	if len(metadata) == 0 {
		return nil
	}
	return metadata
}

func valueOrDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
