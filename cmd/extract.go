/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tieubaoca/pdf-quizbot/service"
	"github.com/tieubaoca/pdf-quizbot/types"
	"github.com/tieubaoca/pdf-quizbot/utils"
)

// extractCmd prints the normalized text of one or more PDF files.
var extractCmd = &cobra.Command{
	Use:   "extract <file.pdf>...",
	Short: "Print the text of PDF files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig(false)
		if err != nil {
			return err
		}
		defer log.Sync()

		detailed, _ := cmd.Flags().GetBool("detailed")
		asJSON, _ := cmd.Flags().GetBool("json")
		pdfService := service.NewPDFService(log)
		out := cmd.OutOrStdout()

		var failed int
		for _, path := range args {
			data, err := utils.ReadFileLimited(path, cfg.MaxUploadSize())
			if err == nil {
				err = utils.ValidatePDF("", data, cfg.MaxUploadSize())
			}
			if err != nil {
				log.Error("cannot read document", zap.String("file", path), zap.Error(err))
				failed++
				continue
			}

			res, err := pdfService.ExtractDetailed(data)
			if err != nil {
				log.Error("extraction failed", zap.String("file", path), zap.Error(err))
				failed++
				continue
			}

			switch {
			case asJSON:
				b, err := json.Marshal(struct {
					File string `json:"file"`
					*types.Extraction
				}{File: path, Extraction: res})
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(b))
			case detailed:
				fmt.Fprintf(out, "%s: %d pages, %d without text %v\n%s\n", path, res.Pages, len(res.EmptyPages), res.EmptyPages, res.Text)
			default:
				fmt.Fprintln(out, res.Text)
			}
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d documents failed", failed, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().BoolP("detailed", "d", false, "print page statistics before the text")
	extractCmd.Flags().Bool("json", false, "print one JSON object per document")
}
