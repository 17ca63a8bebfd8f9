// Package main provides the entry point for the shobdo CLI application.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/shobdo/internal/audio"
	"github.com/dgnsrekt/shobdo/internal/config"
	"github.com/dgnsrekt/shobdo/internal/history"
	"github.com/dgnsrekt/shobdo/internal/tts"
	"github.com/dgnsrekt/shobdo/internal/ttypes"
	"github.com/dgnsrekt/shobdo/internal/voices"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	cfg        config.Config

	voiceName  string
	outputPath string
	inputFile  string
	play       bool
	copyPath   bool
	markdown   bool
	noHistory  bool

	language string
	accent   string
	speed    float64
	emotion  float64
	pitch    float64

	rootCmd = &cobra.Command{
		Use:   "shobdo [TEXT...]",
		Short: "Turn Bangla and English text into speech",
		Long: paragraph(
			fmt.Sprintf("\nTurn Bangla and English text into %s.", keyword("natural speech")),
		),
		Example: paragraph(`shobdo "আমার সোনার বাংলা"
shobdo --voice rahim -o greeting.wav "Assalamu alaikum"
echo "# Notes" | shobdo --markdown --play`),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

func validateOptions(cmd *cobra.Command) error {
	if cmd.Flags().Changed("config") {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file: %w", err)
		}
	}

	c, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	cfg = c

	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	if outputPath == "-" && term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("refusing to write audio to a terminal; redirect stdout or pass a file to --output")
	}
	return nil
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to open file: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

// readText gathers the request text from --file, the arguments or a pipe.
func readText(args []string) (string, error) {
	var (
		text  string
		isMD  = markdown
		input io.Reader
	)

	switch {
	case inputFile == "-":
		input = os.Stdin
	case inputFile != "":
		path := config.ExpandPath(inputFile)
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("unable to open file: %w", err)
		}
		defer f.Close() //nolint:errcheck
		input = f
		if ext := strings.ToLower(filepath.Ext(path)); ext == ".md" || ext == ".markdown" {
			isMD = true
		}
	case len(args) > 0:
		text = strings.Join(args, " ")
	default:
		yes, err := stdinIsPipe()
		if err != nil {
			return "", err
		}
		if !yes {
			return "", errors.New("nothing to say: pass text as arguments, with --file or on stdin")
		}
		input = os.Stdin
	}

	if input != nil {
		b, err := io.ReadAll(input)
		if err != nil {
			return "", fmt.Errorf("unable to read from reader: %w", err)
		}
		text = string(b)
	}

	if isMD {
		text = tts.PlainText(text)
	}
	return text, nil
}

// requestSettings returns delivery settings when any settings flag was
// given, and nil otherwise so the plain prompt is used.
func requestSettings(cmd *cobra.Command) *ttypes.Settings {
	flags := cmd.Flags()
	if !flags.Changed("language") && !flags.Changed("accent") && !flags.Changed("speed") &&
		!flags.Changed("emotion") && !flags.Changed("pitch") {
		return nil
	}

	s := ttypes.DefaultSettings()
	if flags.Changed("language") {
		s.Language = ttypes.Language(strings.ToLower(language))
	}
	if flags.Changed("accent") {
		s.Accent = ttypes.Accent(strings.ToLower(accent))
	}
	if flags.Changed("speed") {
		s.Speed = speed
	}
	if flags.Changed("emotion") {
		s.Emotion = emotion
	}
	if flags.Changed("pitch") {
		s.Pitch = pitch
	}
	return &s
}

func resolveVoice() (voices.Voice, error) {
	catalog := voices.Default()
	query := voiceName
	if query == "" {
		query = cfg.Voice
	}
	if query == "" {
		return catalog.First(), nil
	}
	return catalog.Find(query)
}

func execute(cmd *cobra.Command, args []string) error {
	text, err := readText(args)
	if err != nil {
		return err
	}

	voice, err := resolveVoice()
	if err != nil {
		return err
	}

	engine, err := newEngine(cfg, log.Default())
	if err != nil {
		return err
	}
	defer engine.Close() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	settings := requestSettings(cmd)
	synth := tts.NewSynthesizer(engine, tts.WithFormat(cfg.Audio.SampleRate, cfg.Audio.Channels))
	result, err := synth.Generate(ctx, ttypes.GenerationRequest{
		Text:     text,
		Voice:    voice.PrebuiltName,
		Settings: settings,
	})
	if err != nil {
		return err
	}
	log.Info("Synthesized speech", "voice", voice.ID, "duration", result.Buffer.Duration())

	gen := history.Generation{
		Text:     strings.TrimSpace(text),
		VoiceID:  voice.ID,
		Voice:    voice.PrebuiltName,
		Duration: result.Buffer.Duration(),
	}
	if settings != nil {
		gen.Settings = *settings
	}
	gen, recorded := recordGeneration(gen, result.WAV.Data)

	path, err := writeOutput(gen, result.WAV, recorded)
	if err != nil {
		return err
	}

	summary := fmt.Sprintf("(%s, %s)", gen.Duration.Round(10*time.Millisecond), humanize.Bytes(uint64(result.WAV.Len()))) //nolint:gosec
	switch {
	case path != "":
		fmt.Fprintln(os.Stderr, keyword("Saved"), path, summary)
		if copyPath {
			if err := clipboard.WriteAll(path); err != nil {
				log.Warn("Could not copy path to clipboard", "err", err)
			}
		}
	case recorded && outputPath != "-":
		fmt.Fprintln(os.Stderr, keyword("Recorded"), gen.ID, summary)
	}

	if play {
		return playBuffer(ctx, result.Buffer)
	}
	return nil
}

// recordGeneration saves gen in history unless history is off. Without a
// history entry the generation gets a fresh ID.
func recordGeneration(gen history.Generation, wav []byte) (history.Generation, bool) {
	if cfg.History.Enabled && !noHistory {
		saved, err := saveToHistory(gen, wav)
		if err == nil {
			return saved, true
		}
		log.Warn("Could not save generation to history", "err", err)
	}
	gen.ID = uuid.NewString()
	return gen, false
}

func saveToHistory(gen history.Generation, wav []byte) (history.Generation, error) {
	store, err := openHistory()
	if err != nil {
		return gen, err
	}
	defer store.Close() //nolint:errcheck
	return store.Save(gen, wav)
}

// writeOutput writes the WAV to --output, or to stdout for "-". Without
// --output the file goes to the working directory unless the generation
// was recorded in history or is only being played. It returns the path
// written, if any.
func writeOutput(gen history.Generation, wav audio.Blob, recorded bool) (string, error) {
	switch {
	case outputPath == "-":
		if _, err := wav.WriteTo(os.Stdout); err != nil {
			return "", fmt.Errorf("unable to write to writer: %w", err)
		}
		return "", nil
	case outputPath != "":
		path := config.ExpandPath(outputPath)
		if st, err := os.Stat(path); err == nil && st.IsDir() {
			path = filepath.Join(path, history.FileName(gen))
		}
		return path, writeFile(path, wav.Data)
	case recorded, play:
		return "", nil
	default:
		path := history.FileName(gen)
		return path, writeFile(path, wav.Data)
	}
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("unable to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec
		return fmt.Errorf("unable to write file: %w", err)
	}
	return nil
}

func openHistory() (*history.Store, error) {
	dir, err := cfg.HistoryDir()
	if err != nil {
		return nil, err
	}
	return history.Open(history.Options{
		Dir:              dir,
		MaxSize:          int64(cfg.History.MaxSizeMB) * 1024 * 1024,
		CompressionLevel: cfg.History.CompressionLevel,
	})
}

// newPlayer opens the output device; tests swap it for a mock.
var newPlayer = func(sampleRate, channels int) (ttypes.AudioPlayer, error) {
	pc := audio.DefaultPlayerConfig()
	pc.SampleRate = sampleRate
	pc.Channels = channels

	player, err := audio.NewPlayer(pc)
	if err != nil {
		return nil, err
	}
	return player, nil
}

func playBuffer(ctx context.Context, buf *audio.Buffer) error {
	pcm, err := audio.EncodePCM16(buf)
	if err != nil {
		return err
	}

	player, err := newPlayer(buf.SampleRate(), buf.ChannelCount())
	if err != nil {
		return err
	}
	defer player.Close() //nolint:errcheck

	if err := player.Play(ctx, pcm, buf.SampleRate(), buf.ChannelCount()); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().String("engine", "", "speech engine: gemini or tone")
	rootCmd.PersistentFlags().Bool("debug", false, "log debug output")

	rootCmd.Flags().StringVar(&voiceName, "voice", "", "voice persona id or name (see 'shobdo voices')")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "write the WAV to this file or directory (- for stdout)")
	rootCmd.Flags().StringVarP(&inputFile, "file", "f", "", "read text from a file (- for stdin)")
	rootCmd.Flags().BoolVarP(&play, "play", "p", false, "play the audio when it is ready")
	rootCmd.Flags().BoolVar(&copyPath, "copy", false, "copy the saved file path to the clipboard")
	rootCmd.Flags().BoolVarP(&markdown, "markdown", "m", false, "strip markdown formatting before speaking")
	rootCmd.Flags().BoolVar(&noHistory, "no-history", false, "do not record this generation")

	rootCmd.Flags().StringVar(&language, "language", string(ttypes.LanguageBangla), "language: bangla, english or banglish")
	rootCmd.Flags().StringVar(&accent, "accent", string(ttypes.AccentDhaka), "accent: dhaka, chittagong, sylheti, trendy or news")
	rootCmd.Flags().Float64Var(&speed, "speed", 1, "speaking speed, 0.5 to 2.0")
	rootCmd.Flags().Float64Var(&emotion, "emotion", 0.5, "expressiveness, 0.0 to 1.0")
	rootCmd.Flags().Float64Var(&pitch, "pitch", 1, "pitch, 0.5 to 1.5")

	// Config bindings
	_ = viper.BindPFlag("engine", rootCmd.PersistentFlags().Lookup("engine"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("voice", rootCmd.Flags().Lookup("voice"))

	config.SetDefaults(viper.GetViper())

	rootCmd.AddCommand(configCmd, manCmd, voicesCmd, historyCmd, serveCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, config.AppName)
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, config.AppName)}, dirs...)
	}

	if c := os.Getenv("SHOBDO_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName(config.AppName)
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix(config.AppName)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], config.AppName+".yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
