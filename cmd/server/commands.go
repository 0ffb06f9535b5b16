package main

import (
	"fmt"
	"os"

	"github.com/gdg-garage/reputation-tracker/internal/auth"
	"github.com/gdg-garage/reputation-tracker/internal/database"
	"github.com/gdg-garage/reputation-tracker/internal/models"
	"github.com/gdg-garage/reputation-tracker/internal/reputation"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close(db)

		version, err := database.SchemaVersion(db)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", version)
		return nil
	},
}

var (
	importUserID uint
	importFile   string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a reputation export file for a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(importFile)
		if err != nil {
			return err
		}
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close(db)

		service := reputation.NewService(db, logger.Named("reputation"), reputation.WithMottoes(cfg.RequiredMottoes))
		result, err := service.ImportJSON(cmd.Context(), importUserID, raw)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d emblems from %d factions (%d new, %d thresholds)\n",
			result.Emblems, result.Factions, len(result.NewEmblems), result.ThresholdsRecorded)
		for _, e := range result.NewEmblems {
			fmt.Fprintf(cmd.OutOrStdout(), "  new: %s/%s (#%d) awaiting validation\n", e.FactionKey, e.Name, e.ID)
		}
		return nil
	},
}

var (
	userAdmin     bool
	userModerator bool
)

var userCmd = &cobra.Command{
	Use:   "user <username>",
	Short: "Create or update a user and print a session token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET must be set")
		}
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close(db)

		var user models.User
		if err := db.Where(models.User{Username: args[0]}).FirstOrInit(&user).Error; err != nil {
			return err
		}
		user.IsAdmin = userAdmin
		user.IsModerator = userModerator
		if err := db.Save(&user).Error; err != nil {
			return err
		}
		logger.Info("user saved", zap.Uint("user_id", user.ID), zap.String("username", user.Username))

		token, err := auth.NewAuthHandler(cfg.JWTSecret, db).GenerateToken(user.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "user %d\n%s=%s\n", user.ID, auth.CookieName, token)
		return nil
	},
}

func init() {
	importCmd.Flags().UintVar(&importUserID, "user", 0, "id of the user the export belongs to")
	importCmd.Flags().StringVar(&importFile, "file", "", "path to the JSON export")
	_ = importCmd.MarkFlagRequired("user")
	_ = importCmd.MarkFlagRequired("file")

	userCmd.Flags().BoolVar(&userAdmin, "admin", false, "grant admin rights")
	userCmd.Flags().BoolVar(&userModerator, "moderator", false, "grant moderator rights")
}
