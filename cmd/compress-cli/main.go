package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/fpang/batch-compress/internal/admission"
	"github.com/fpang/batch-compress/internal/batch"
	"github.com/fpang/batch-compress/internal/cli"
	"github.com/fpang/batch-compress/internal/compress"
	"github.com/fpang/batch-compress/internal/config"
	"github.com/fpang/batch-compress/internal/filehandler"
	"github.com/fpang/batch-compress/internal/jobconfig"
	"github.com/fpang/batch-compress/internal/logging"
	"github.com/fpang/batch-compress/internal/progress"
	"github.com/fpang/batch-compress/internal/session"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X main.commitHash=... -X main.buildTime=...".
var (
	commitHash string
	buildTime  string
)

// CLI flags
var (
	directoryFlag string
	maxDepthFlag  int
	limitFlag     int
	pickFlag      bool

	modeFlag          string
	qualityFlag       string
	customQualityFlag string
	targetSizeFlag    string
	targetUnitFlag    string

	aiFlag              bool
	removeMetadataFlag  bool
	losslessFlag        bool
	passwordProtectFlag bool
	passwordFlag        string

	serviceURLFlag string
	timeoutFlag    time.Duration
	outputFlag     string
	saveDialogFlag bool
)

// rootCmd is the main Cobra command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "compress-cli [files...]",
	Short: "Batch file compression client",
	Long: `Compress CLI sends a batch of images, PDFs, documents, videos, and archives to
a compression service and downloads the compressed result.

Files can be given as arguments, collected from a directory, or picked with the
native file dialog. Up to 50 files of at most 1 GiB each are accepted per batch;
anything else is reported and left out.

Examples:
  compress-cli photo.png report.pdf
  compress-cli -d ./vacation-photos --quality high
  compress-cli --pick --quality custom --custom-quality 70
  compress-cli -d ./scans --mode target_size --target-size 5 --target-unit MB
  compress-cli deck.pptx --password-protect --password secret -o ./out
  compress-cli  # Interactive mode - prompts for a directory`,
	Args: cobra.ArbitraryArgs,
	Run:  runSubmit,
}

// previewCmd shows what would be submitted without contacting the service.
var previewCmd = &cobra.Command{
	Use:   "preview [files...]",
	Short: "Show the admitted batch, image details, and estimated savings",
	Args:  cobra.ArbitraryArgs,
	Run:   runPreview,
}

func init() {
	for _, cmd := range []*cobra.Command{rootCmd, previewCmd} {
		cmd.Flags().StringVarP(&directoryFlag, "directory", "d", "", "Directory to collect files from")
		cmd.Flags().IntVar(&maxDepthFlag, "max-depth", 0, "Maximum recursion depth (0 = unlimited)")
		cmd.Flags().IntVar(&limitFlag, "limit", 0, "Maximum files to collect from the directory (0 = unlimited)")
		cmd.Flags().BoolVar(&pickFlag, "pick", false, "Choose files with the native file picker")
	}

	rootCmd.Flags().StringVar(&modeFlag, "mode", jobconfig.ModeQualityBased, "Compression mode: quality_based or target_size")
	rootCmd.Flags().StringVarP(&qualityFlag, "quality", "q", string(jobconfig.PresetMedium), "Quality preset: low, medium, high, maximum, or custom")
	rootCmd.Flags().StringVar(&customQualityFlag, "custom-quality", "", "Custom quality 0-100 (with --quality custom)")
	rootCmd.Flags().StringVar(&targetSizeFlag, "target-size", "", "Target output size (with --mode target_size)")
	rootCmd.Flags().StringVar(&targetUnitFlag, "target-unit", string(jobconfig.UnitMB), "Target size unit: KB, MB, or GB")

	rootCmd.Flags().BoolVar(&aiFlag, "ai", false, "Enable AI optimization")
	rootCmd.Flags().BoolVar(&removeMetadataFlag, "remove-metadata", false, "Strip metadata from output files")
	rootCmd.Flags().BoolVar(&losslessFlag, "lossless", false, "Use lossless compression where possible")
	rootCmd.Flags().BoolVar(&passwordProtectFlag, "password-protect", false, "Password-protect supported outputs")
	rootCmd.Flags().StringVar(&passwordFlag, "password", "", "Password for protected outputs (prompted if omitted)")

	rootCmd.Flags().StringVar(&serviceURLFlag, "service-url", "", "Compression service URL (overrides COMPRESS_SERVICE_URL)")
	rootCmd.Flags().DurationVar(&timeoutFlag, "timeout", 0, "Request timeout (overrides COMPRESS_REQUEST_TIMEOUT)")
	rootCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Directory to save the result in (overrides COMPRESS_OUTPUT_DIR)")
	rootCmd.Flags().BoolVar(&saveDialogFlag, "save-dialog", false, "Choose where to save the result with the native save dialog")

	previewCmd.Flags().StringVar(&thumbnailDirFlag, "thumbnails", "", "Write image thumbnails to this directory")

	rootCmd.AddCommand(previewCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runSubmit is the main execution logic called by Cobra.
func runSubmit(cmd *cobra.Command, args []string) {
	logging.Init()
	startTime := time.Now()

	cfg := loadConfig(cmd)

	client, err := compress.NewClient(cfg.ServiceURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create compression client")
	}

	logging.NewStartupLogger("compress-cli").
		CommitHash(commitHash).
		BuildTime(buildTime).
		ServiceURL(client.BaseURL()).
		Config("requestTimeout", cfg.RequestTimeout.String()).
		Config("retrievalTimeout", cfg.RetrievalTimeout.String()).
		Config("outputDir", cfg.OutputDir).
		Config("mode", modeFlag).
		Feature("aiOptimization", aiFlag).
		Feature("removeMetadata", removeMetadataFlag).
		Feature("lossless", losslessFlag).
		Feature("passwordProtection", passwordProtectFlag).
		Feature("saveDialog", saveDialogFlag).
		InitDuration(time.Since(startTime)).
		Log()

	candidates := collectCandidates(args)

	presenter := newTerminalPresenter(os.Stdout, cfg.OutputDir, saveDialogFlag)
	s := session.New(client, presenter, sessionOptions(cfg))
	defer s.Close()

	s.Offer(candidates)
	if s.State() == batch.Empty {
		os.Exit(1)
	}

	form := formFromFlags()
	if form.PasswordProtection && form.Password == "" {
		form.Password = cli.PromptForPassword()
	}
	fmt.Printf("Compression: %s\n", qualityLabel(form))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	stopClose := context.AfterFunc(ctx, s.Close)
	defer stopClose()

	if err := s.Submit(ctx, form); err != nil {
		log.Debug().Err(err).Msg("Submission did not complete")
		os.Exit(1)
	}
	s.Wait()

	if ctx.Err() != nil || presenter.errorCount() > 0 {
		os.Exit(1)
	}
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig(cmd *cobra.Command) *config.Config {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	if cmd.Flags().Changed("service-url") {
		cfg.ServiceURL = serviceURLFlag
	}
	if cmd.Flags().Changed("timeout") {
		cfg.RequestTimeout = timeoutFlag
	}
	if cmd.Flags().Changed("output") {
		cfg.OutputDir = outputFlag
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	if !saveDialogFlag {
		cfg.OutputDir = cli.EnsureOutputDirectory(cfg.OutputDir)
	}
	return cfg
}

// admissionPolicy is the batch policy shared by submit and preview.
func admissionPolicy(cfg *config.Config) admission.Policy {
	policy := admission.DefaultPolicy()
	policy.MaxCount = min(cfg.MaxFiles, admission.DefaultMaxCount)
	return policy
}

func sessionOptions(cfg *config.Config) session.Options {
	return session.Options{
		Policy:           admissionPolicy(cfg),
		RequestTimeout:   cfg.RequestTimeout,
		RetrievalTimeout: cfg.RetrievalTimeout,
		RetrievalDelay:   cfg.RetrievalDelay,
		Progress:         progress.Options{Interval: cfg.ProgressInterval},
	}
}

func formFromFlags() jobconfig.FormSnapshot {
	return jobconfig.FormSnapshot{
		Mode:               modeFlag,
		QualityLevel:       qualityFlag,
		CustomQuality:      customQualityFlag,
		TargetSize:         targetSizeFlag,
		TargetUnit:         targetUnitFlag,
		AIOptimization:     aiFlag,
		RemoveMetadata:     removeMetadataFlag,
		LosslessMode:       losslessFlag,
		PasswordProtection: passwordProtectFlag,
		Password:           passwordFlag,
	}
}

// collectCandidates gathers files from arguments, the picker, and a directory.
// With none of those given it prompts for a directory.
func collectCandidates(args []string) []filehandler.CandidateFile {
	paths := args
	if pickFlag {
		picked, err := cli.PickFiles()
		if err != nil {
			if errors.Is(err, cli.ErrPickerCanceled) {
				log.Fatal().Msg("No files selected")
			}
			log.Fatal().Err(err).Msg("File picker failed")
		}
		paths = append(paths, picked...)
	}

	candidates, err := filehandler.LoadCandidates(paths)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load files")
	}

	dirPath := directoryFlag
	if dirPath == "" && len(candidates) == 0 {
		dirPath = cli.PromptForDirectory()
	}
	if dirPath != "" {
		dirPath = cli.ValidateAndResolveDirectory(dirPath)
		scanned, err := filehandler.ScanDirectory(dirPath, filehandler.ScanOptions{
			MaxDepth: maxDepthFlag,
			Limit:    limitFlag,
		})
		if err != nil {
			log.Fatal().Err(err).Str("path", dirPath).Msg("Failed to scan directory")
		}
		candidates = append(candidates, scanned...)
	}

	if len(candidates) == 0 {
		log.Fatal().Msg("No files found")
	}
	log.Info().Int("fileCount", len(candidates)).Msg("Files collected")
	return candidates
}

// qualityLabel renders the chosen mode for display.
func qualityLabel(form jobconfig.FormSnapshot) string {
	if form.Mode == jobconfig.ModeTargetSize {
		return fmt.Sprintf("target %s %s", form.TargetSize, form.TargetUnit)
	}
	if form.QualityLevel == "custom" {
		if q, err := strconv.Atoi(form.CustomQuality); err == nil {
			return fmt.Sprintf("custom (%d)", q)
		}
	}
	return form.QualityLevel
}
