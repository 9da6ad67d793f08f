package cmd

import (
	"context"
	"errors"
	"net/http"

	"github.com/andresmejia3/facekit/internal/server"
	"github.com/andresmejia3/facekit/internal/utils"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the upload-and-predict web UI",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runServe(cmd.Context())
	},
}

func init() {
	addModelFlags(serveCmd)
	serveCmd.Flags().StringVarP(&cfg.BindAddress, "addr", "a", cfg.BindAddress, "Listen address")
	serveCmd.Flags().StringVar(&cfg.TLSDomains, "tls-domains", cfg.TLSDomains, "Comma separated domains for automatic Let's Encrypt TLS")
	serveCmd.Flags().UintVar(&cfg.PreviewWidth, "preview-width", cfg.PreviewWidth, "Width of the uploaded image preview")
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	predictor, err := loadPredictor(ctx)
	if err != nil {
		utils.ShowError("Failed to load model", err, workerCommand(err))
		return err
	}
	defer predictor.Close()

	srv := server.New(predictor, server.Options{
		PreviewWidth: cfg.PreviewWidth,
		Debug:        cfg.DebugMode,
	})
	if err := srv.Run(ctx, cfg.BindAddress, cfg.Domains()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		utils.ShowError("Server stopped", err, nil)
		return err
	}
	return nil
}
