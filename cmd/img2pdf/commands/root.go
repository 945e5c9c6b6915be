package commands

import (
	"github.com/spf13/cobra"

	"github.com/feichai0017/image2pdf/cmd/img2pdf/ui"
)

var (
	cfgFile string
	verbose bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "img2pdf",
	Short: "Convert images to single-page PDF documents",
	Long: `img2pdf converts JPEG, PNG, GIF, BMP, TIFF, WebP and SVG images into
one PDF per image. Each page is exactly the size of its image.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ui.InitUI(cmd.OutOrStdout(), cmd.ErrOrStderr(), noColor)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
