package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/soypete/volcasr/pkg/jobs"
	"github.com/soypete/volcasr/pkg/subtitle"
)

func subtitleCmd() *cobra.Command {
	var (
		appID        string
		language     string
		captionType  string
		wordsPerLine int
		maxLines     int
		punc         bool
		speaker      bool
		nonBlocking  bool
		interval     int
		maxAttempts  int
		timeout      int
		concurrency  int
		output       string
	)

	cmd := &cobra.Command{
		Use:   "subtitle FILE|URL [FILE|URL...]",
		Short: "Generate subtitles for local files or URLs",
		Long: `Submit one subtitle job per input and wait for the captions.

Inputs starting with http:// or https:// are sent by reference; anything else
is read from disk and uploaded, with the media type taken from the extension.

Examples:
  # SRT captions for a local recording
  volcasr subtitle --output srt --words-per-line 15 talk.mp3

  # Poll without holding the query open
  volcasr subtitle --non-blocking --interval 5 https://example.com/talk.wav`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession()
			if err != nil {
				return err
			}
			defer s.Close()

			if cmd.Flags().Changed("app-id") {
				s.cfg.App.AppID = appID
			}

			defaults := s.cfg.Subtitle
			if cmd.Flags().Changed("words-per-line") {
				defaults.WordsPerLine = wordsPerLine
			}
			if cmd.Flags().Changed("max-lines") {
				defaults.MaxLines = maxLines
			}
			if captionType != "" {
				defaults.CaptionType = captionType
			}
			if language != "" {
				defaults.Language = language
			}

			template := subtitle.NewBuilder().AppID(s.cfg.App.AppID)
			if defaults.WordsPerLine > 0 {
				template = template.WordsPerLine(defaults.WordsPerLine)
			}
			if defaults.MaxLines > 0 {
				template = template.MaxLines(defaults.MaxLines)
			}
			if defaults.CaptionType != "" {
				template = template.CaptionType(defaults.CaptionType)
			}
			if defaults.Language != "" {
				template = template.Language(defaults.Language)
			}
			if cmd.Flags().Changed("punc") {
				template = template.UsePunc(punc)
			}
			if cmd.Flags().Changed("speaker") {
				template = template.WithSpeakerInfo(speaker)
			}

			opts := s.cfg.PollOptions()
			if cmd.Flags().Changed("interval") {
				opts.Interval = time.Duration(interval) * time.Second
			}
			if cmd.Flags().Changed("max-attempts") {
				opts.MaxAttempts = maxAttempts
			}

			if output != "json" && output != "srt" {
				return fmt.Errorf("unknown output format %q (use json or srt)", output)
			}

			ctx, cancel := signalContext()
			defer cancel()
			ctx, cancelTimeout := withTimeout(ctx, timeout)
			defer cancelTimeout()

			task := func(ctx context.Context, input string, submitted func(string)) (interface{}, error) {
				source, err := sourceFor(input)
				if err != nil {
					return nil, err
				}
				req, err := template.Source(source).Build()
				if err != nil {
					return nil, err
				}

				ack, err := req.Submit(ctx, s.client)
				if err != nil {
					return nil, err
				}
				submitted(ack.ID)

				var result *subtitle.Result
				if nonBlocking {
					result, err = ack.Poll(ctx, s.client, req.AppID(), opts)
				} else {
					result, err = ack.Wait(ctx, s.client, req.AppID())
				}
				if err != nil {
					return nil, err
				}
				if !result.Ready() {
					s.logger.Printf("[ERROR] subtitle job %s finished with code=%d message=%s", ack.ID, result.Code, result.Message)
				}
				return result, nil
			}

			finished, err := jobs.Run(ctx, jobs.NewManager(), jobs.TypeSubtitle, args, concurrency, task)
			if err != nil {
				if finished == nil {
					return err
				}
				s.logger.Printf("[ERROR] %v", err)
			}

			if output == "srt" {
				err = writeSubtitles(cmd.OutOrStdout(), finished)
			} else {
				err = writeJobs(cmd.OutOrStdout(), finished)
			}
			if err != nil {
				return err
			}
			return failedJobs(finished)
		},
	}

	cmd.Flags().StringVar(&appID, "app-id", "", "Application id (overrides config)")
	cmd.Flags().StringVarP(&language, "language", "l", "", "Recognition language (e.g. zh-CN)")
	cmd.Flags().StringVar(&captionType, "caption-type", "", "Caption type (speech, singing, auto)")
	cmd.Flags().IntVar(&wordsPerLine, "words-per-line", 0, "Maximum words per caption line")
	cmd.Flags().IntVar(&maxLines, "max-lines", 0, "Maximum lines per caption")
	cmd.Flags().BoolVar(&punc, "punc", false, "Add punctuation")
	cmd.Flags().BoolVar(&speaker, "speaker", false, "Include speaker information")
	cmd.Flags().BoolVar(&nonBlocking, "non-blocking", false, "Poll instead of holding one query open")
	cmd.Flags().IntVar(&interval, "interval", 0, "Seconds between polls with --non-blocking")
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "Give up after this many polls with --non-blocking")
	cmd.Flags().IntVar(&timeout, "timeout", 0, "Abort the whole command after this many seconds")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "Jobs in flight at once (0 for no limit)")
	cmd.Flags().StringVarP(&output, "output", "o", "json", "Output format (json, srt)")

	return cmd
}

// sourceFor treats http(s) inputs as references and everything else as a file
func sourceFor(input string) (subtitle.Source, error) {
	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		return subtitle.URLSource(input), nil
	}
	return subtitle.FromFile(input)
}
