package main

import (
	"fmt"
	"mime"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/placementmentor/mentor-server/internal/infrastructure/textextract"
)

func newExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Extract text from a document",
		Long:  `Run the server's text extractor on a local file and print the text that would be shared with the AI service.`,
		Args:  cobra.ExactArgs(1),
		RunE:  runExtract,
	}
	cmd.Flags().String("mime", "", "Media type (default: guessed from the file extension)")
	cmd.Flags().Bool("no-docx", false, "Disable DOCX extraction")
	cmd.Flags().Int("max-chars", textextract.DefaultMaxChars, "Truncate after this many characters")
	return cmd
}

func runExtract(cmd *cobra.Command, args []string) error {
	path := args[0]
	mediaType, _ := cmd.Flags().GetString("mime")
	noDocx, _ := cmd.Flags().GetBool("no-docx")
	maxChars, _ := cmd.Flags().GetInt("max-chars")

	if mediaType == "" {
		mediaType = mime.TypeByExtension(filepath.Ext(path))
	}

	extractor := textextract.New(textextract.Options{DocxSupported: !noDocx, MaxChars: maxChars}, zerolog.Nop())
	text := extractor.ExtractFile(path, mediaType, filepath.Base(path))
	if text == "" {
		return fmt.Errorf("no text could be extracted from %s", path)
	}

	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}
