package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/soypete/volcasr/pkg/client"
	"github.com/soypete/volcasr/pkg/jobs"
	"github.com/soypete/volcasr/pkg/poll"
	"github.com/soypete/volcasr/pkg/record"
)

func recordCmd() *cobra.Command {
	var (
		appID       string
		cluster     string
		uid         string
		format      string
		codec       string
		rate        int
		language    string
		callback    string
		punc        bool
		itn         bool
		speaker     bool
		interval    int
		maxAttempts int
		timeout     int
		concurrency int
		output      string
	)

	cmd := &cobra.Command{
		Use:   "record URL [URL...]",
		Short: "Transcribe audio reachable by URL",
		Long: `Submit one transcription job per URL and poll until each is ready.

Examples:
  # Transcribe a single file with punctuation
  volcasr record --punc https://example.com/talk.mp3

  # Two files at once, stop after 30 polls each
  volcasr record --max-attempts 30 https://example.com/a.wav https://example.com/b.wav`,
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
			if cmd.Flags().Changed("cluster") {
				s.cfg.App.Cluster = cluster
			}
			if cmd.Flags().Changed("uid") {
				s.cfg.App.UID = uid
			}

			opts := s.cfg.PollOptions()
			if cmd.Flags().Changed("interval") {
				opts.Interval = time.Duration(interval) * time.Second
			}
			if cmd.Flags().Changed("max-attempts") {
				opts.MaxAttempts = maxAttempts
			}

			template := record.NewBuilder().
				AppID(s.cfg.App.AppID).
				Token(s.cfg.App.Token).
				Cluster(s.cfg.App.Cluster).
				UID(s.cfg.App.UID)
			if format != "" {
				template = template.Format(format)
			}
			if codec != "" {
				template = template.Codec(codec)
			}
			if rate > 0 {
				template = template.Rate(rate)
			}
			if language != "" {
				template = template.Language(language)
			}
			if callback != "" {
				template = template.Callback(callback)
			}
			if cmd.Flags().Changed("punc") {
				template = template.UsePunc(punc)
			}
			if cmd.Flags().Changed("itn") {
				template = template.UseITN(itn)
			}
			if cmd.Flags().Changed("speaker") {
				template = template.WithSpeakerInfo(speaker)
			}

			// Fail on missing identity before anything is submitted
			for _, source := range args {
				if _, err := template.URL(source).Build(); err != nil {
					return err
				}
			}

			ctx, cancel := signalContext()
			defer cancel()
			ctx, cancelTimeout := withTimeout(ctx, timeout)
			defer cancelTimeout()

			task := recordTask(s.client, template, opts)
			finished, err := jobs.Run(ctx, jobs.NewManager(), jobs.TypeRecord, args, concurrency, task)
			if err != nil {
				if finished == nil {
					return err
				}
				s.logger.Printf("[ERROR] %v", err)
			}

			switch output {
			case "text":
				err = writeTranscripts(cmd.OutOrStdout(), finished)
			case "json":
				err = writeJobs(cmd.OutOrStdout(), finished)
			default:
				return fmt.Errorf("unknown output format %q (use json or text)", output)
			}
			if err != nil {
				return err
			}
			return failedJobs(finished)
		},
	}

	cmd.Flags().StringVar(&appID, "app-id", "", "Application id (overrides config)")
	cmd.Flags().StringVar(&cluster, "cluster", "", "Service cluster (overrides config)")
	cmd.Flags().StringVar(&uid, "uid", "", "End-user id (overrides config)")
	cmd.Flags().StringVar(&format, "format", "", "Audio container format (mp3, wav, ogg, ...)")
	cmd.Flags().StringVar(&codec, "codec", "", "Audio codec")
	cmd.Flags().IntVar(&rate, "rate", 0, "Sample rate in Hz")
	cmd.Flags().StringVarP(&language, "language", "l", "", "Recognition language (e.g. zh-CN)")
	cmd.Flags().StringVar(&callback, "callback", "", "Callback URL notified when the job finishes")
	cmd.Flags().BoolVar(&punc, "punc", false, "Add punctuation")
	cmd.Flags().BoolVar(&itn, "itn", false, "Apply inverse text normalization")
	cmd.Flags().BoolVar(&speaker, "speaker", false, "Include speaker information")
	cmd.Flags().IntVar(&interval, "interval", 0, "Seconds between polls (default from config, 10)")
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "Give up after this many polls (0 polls until ready)")
	cmd.Flags().IntVar(&timeout, "timeout", 0, "Abort the whole command after this many seconds")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "Jobs in flight at once (0 for no limit)")
	cmd.Flags().StringVarP(&output, "output", "o", "json", "Output format (json, text)")

	return cmd
}

// recordTask submits one URL and polls for its transcript. An acknowledgment
// without CodeReady or without a job id fails the job without polling.
func recordTask(c *client.Client, template record.Builder, opts poll.Options) jobs.Task {
	return func(ctx context.Context, source string, submitted func(string)) (interface{}, error) {
		req, err := template.URL(source).Build()
		if err != nil {
			return nil, err
		}

		ack, err := req.Submit(ctx, c)
		if err != nil {
			return nil, err
		}
		if ack.Code != record.CodeReady || ack.ID == "" {
			c.Errorf("submit %s rejected: code=%d message=%s", source, ack.Code, ack.Message)
			return nil, fmt.Errorf("submit rejected: code=%d message=%q id=%q", ack.Code, ack.Message, ack.ID)
		}
		submitted(ack.ID)

		return ack.Wait(ctx, c, opts)
	}
}
