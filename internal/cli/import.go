package cli

import (
	"daily-trivia-service/internal/config"
	"daily-trivia-service/internal/domain"
	"daily-trivia-service/internal/infra/postgres"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewImportCmd loads authored question set files into Postgres.
func NewImportCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml>...",
		Short: "Import daily question sets from YAML files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log := newLogger(cfg)

			db, err := openBun(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := runMigrations(cmd.Context(), db, log); err != nil {
				return err
			}

			importer := postgres.NewImporter(db)
			for _, path := range args {
				set, err := config.LoadQuestionSetFile(path)
				if err != nil {
					return err
				}
				if err := importer.ImportQuestionSet(cmd.Context(), set); err != nil {
					return err
				}
				log.WithFields(logrus.Fields{
					"file":      path,
					"set":       set.ID,
					"date":      domain.FormatDate(set.Date),
					"questions": len(set.Questions),
				}).Info("question set imported")
			}
			return nil
		},
	}
}
