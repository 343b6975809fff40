package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/alecthomas/kong"
	"github.com/danmuck/packetizer/internal/config"
	"github.com/danmuck/packetizer/internal/observability"
	"github.com/danmuck/packetizer/internal/protocol/frame"
	"github.com/danmuck/packetizer/internal/stream"
	"github.com/rs/zerolog/log"
)

type cli struct {
	Run      runCmd      `cmd:"" default:"withargs" help:"Frame an input stream."`
	Encode   encodeCmd   `cmd:"" help:"Wrap each stdin line in frame delimiters."`
	Profiles profilesCmd `cmd:"" help:"List framing profiles."`
	Init     initCmd     `cmd:"" help:"Write a config template."`
	Validate validateCmd `cmd:"" help:"Validate a config file."`
}

// frameFlags override the runtime config file.
type frameFlags struct {
	Config       string `short:"c" type:"path" help:"Runtime config file (TOML)."`
	Stream       string `help:"Stream name used in logs and metrics."`
	Input        string `short:"i" help:"Input: stdin, file:<path> or tcp:<addr>."`
	Profile      string `short:"p" help:"Framing profile name."`
	ProfilesFile string `type:"path" help:"Extra profiles file (TOML)."`
	BufferSize   int    `help:"Frame buffer size in bytes."`
}

func (f frameFlags) resolve() (runtimeConfig, error) {
	cfg := defaultRuntimeConfig()
	if f.Config != "" {
		loaded, err := loadRuntimeConfig(f.Config)
		if err != nil {
			return runtimeConfig{}, err
		}
		cfg = loaded
	}
	if f.Stream != "" {
		cfg.Stream = f.Stream
	}
	if f.Input != "" {
		cfg.Input = f.Input
	}
	if f.Profile != "" {
		cfg.Profile = f.Profile
	}
	if f.ProfilesFile != "" {
		cfg.ProfilesFile = f.ProfilesFile
	}
	if f.BufferSize > 0 {
		cfg.BufferSize = f.BufferSize
	}
	if err := validateRuntimeConfig(cfg); err != nil {
		return runtimeConfig{}, err
	}
	return cfg, nil
}

type runCmd struct {
	Frame       frameFlags `embed:""`
	MetricsAddr string     `help:"Serve /health, /status and /metrics on this address."`
	LogPayloads bool       `help:"Log frame payloads as hex."`
}

func (c *runCmd) Run() error {
	logger := observability.InitLogger("framectl")
	cfg, err := c.Frame.resolve()
	if err != nil {
		return err
	}
	if c.MetricsAddr != "" {
		cfg.MetricsAddr = c.MetricsAddr
	}
	if c.LogPayloads {
		cfg.LogPayloads = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := newPipeline(ctx, cfg, logger, defaultDialers())
	if err != nil {
		return err
	}
	defer p.Close()

	if cfg.MetricsAddr != "" {
		srv := observability.NewServer("framectl", cfg.MetricsAddr, cfg.CorsOrigins, func() any {
			return p.status()
		})
		go func() {
			if err := srv.Serve(ctx); err != nil {
				log.Error().Err(err).Str("addr", cfg.MetricsAddr).Msg("metrics server stopped")
			}
		}()
	}

	log.Info().
		Str("stream", cfg.Stream).
		Str("input", cfg.Input).
		Str("profile", cfg.Profile).
		Int("buffer_size", p.framer.BufferSize()).
		Bool("reconnect", cfg.Reconnect).
		Msg("framing started")

	stats, err := runInput(ctx, p.pump, cfg)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	st := p.status()
	log.Info().
		Uint64("reads", stats.Reads).
		Uint64("bytes", stats.Bytes).
		Uint64("frames", st.Frames).
		Uint64("overflows", st.Overflows).
		Msg("framing stopped")
	return err
}

// runInput pumps the configured input. tcp inputs with reconnect enabled are
// redialed with backoff; everything else runs until EOF.
func runInput(ctx context.Context, pump *stream.Pump, cfg runtimeConfig) (stream.Stats, error) {
	kind, _, err := parseInput(cfg.Input)
	if err != nil {
		return stream.Stats{}, err
	}
	if kind == inputTCP && cfg.Reconnect {
		backoff := stream.DefaultBackoff()
		backoff.MaxAttempts = cfg.ReconnectMaxAttempts
		return pump.Redial(ctx, func(ctx context.Context) (io.ReadCloser, error) {
			return openInput(ctx, cfg.Input)
		}, backoff)
	}

	in, err := openInput(ctx, cfg.Input)
	if err != nil {
		return stream.Stats{}, err
	}
	defer in.Close()
	detach := stream.CloseOnDone(ctx, in)
	defer detach()
	return pump.Run(ctx, in)
}

type encodeCmd struct {
	Frame frameFlags `embed:""`
}

func (c *encodeCmd) Run() error {
	cfg, err := c.Frame.resolve()
	if err != nil {
		return err
	}
	return encodeLines(cfg, os.Stdin, os.Stdout)
}

// encodeLines frames every input line with the configured delimiters, sized
// so a receiving framer with the same profile recovers each payload.
func encodeLines(cfg runtimeConfig, r io.Reader, w io.Writer) error {
	start, end, size, err := resolveProfile(cfg)
	if err != nil {
		return err
	}
	d := frame.Delimiters{Start: start, End: end}
	limits := frame.LimitsFor(size, d)

	out := bufio.NewWriter(w)
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		if err := frame.WriteFrame(out, d, scanner.Bytes(), limits); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return out.Flush()
}

type profilesCmd struct {
	ProfilesFile string `type:"path" help:"Extra profiles file (TOML)."`
}

func (c *profilesCmd) Run() error {
	profiles := config.BuiltinProfiles()
	if c.ProfilesFile != "" {
		loaded, err := config.LoadProfiles(c.ProfilesFile)
		if err != nil {
			return err
		}
		profiles = config.MergeProfiles(profiles, loaded)
	}
	return writeProfiles(os.Stdout, profiles)
}

func writeProfiles(w io.Writer, profiles []config.Profile) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTART\tEND\tBUFFER")
	for _, p := range profiles {
		start, end, err := p.Delimiters()
		if err != nil {
			return fmt.Errorf("profile %q: %w", p.Name, err)
		}
		fmt.Fprintf(tw, "%s\t%q\t%q\t%d\n", p.Name, start, end, p.BufferSize)
	}
	return tw.Flush()
}

type initCmd struct {
	Kind   string `enum:"runtime,profiles" default:"runtime" help:"Template kind (runtime, profiles)."`
	Output string `short:"o" type:"path" default:"framectl.toml" help:"Output path."`
	Force  bool   `help:"Overwrite an existing file."`
}

func (c *initCmd) Run() error {
	if err := config.WriteTemplate(c.Output, c.Kind, c.Force); err != nil {
		return err
	}
	fmt.Printf("wrote %s config template to %s\n", c.Kind, c.Output)
	return nil
}

type validateCmd struct {
	Kind string `enum:"runtime,profiles" default:"runtime" help:"Config kind (runtime, profiles)."`
	Path string `arg:"" type:"path" help:"Config file to validate."`
}

func (c *validateCmd) Run() error {
	switch c.Kind {
	case "profiles":
		if _, err := config.LoadProfiles(c.Path); err != nil {
			return err
		}
	default:
		cfg, err := loadRuntimeConfig(c.Path)
		if err != nil {
			return err
		}
		if _, err := buildFramer(cfg); err != nil {
			return err
		}
	}
	fmt.Printf("validated %s config at %s\n", c.Kind, c.Path)
	return nil
}

func main() {
	var c cli
	ctx := kong.Parse(&c,
		kong.Name("framectl"),
		kong.Description("Reassemble delimited frames from a byte stream."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run())
}
