// Package transcription turns stored consultation audio into a speaker-labelled transcript.
package transcription

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"Attentus/util"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const speakerCount = 2

type recognizeFunc func(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error)

type Options struct {
	Language        string
	Encoding        speechpb.RecognitionConfig_AudioEncoding
	SampleRateHertz int32
	Timeout         time.Duration
	MaxAttempts     int
	Backoff         gax.Backoff
}

func DefaultOptions() Options {
	return Options{
		Language:        "en-US",
		Encoding:        speechpb.RecognitionConfig_LINEAR16,
		SampleRateHertz: 16000,
		Timeout:         10 * time.Minute,
		MaxAttempts:     3,
		Backoff: gax.Backoff{
			Initial:    time.Second,
			Max:        30 * time.Second,
			Multiplier: 2,
		},
	}
}

type Client struct {
	recognize recognizeFunc
	opts      Options
	closer    func() error
}

/*
* Open the speech client once at startup
* Each recognition is submitted as a long running operation and awaited
 */
func New(ctx context.Context, credentialsFile string, opts Options) (*Client, error) {
	var clientOpts []option.ClientOption
	if credentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(credentialsFile))
	}
	sc, err := speech.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("while creating speech client: %w", err)
	}

	recognize := func(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error) {
		op, err := sc.LongRunningRecognize(ctx, req)
		if err != nil {
			return nil, err
		}
		return op.Wait(ctx)
	}
	c := newClient(recognize, opts)
	c.closer = sc.Close
	return c, nil
}

func newClient(recognize recognizeFunc, opts Options) *Client {
	def := DefaultOptions()
	if opts.Language == "" {
		opts.Language = def.Language
	}
	if opts.Encoding == speechpb.RecognitionConfig_ENCODING_UNSPECIFIED {
		opts.Encoding = def.Encoding
	}
	if opts.SampleRateHertz == 0 {
		opts.SampleRateHertz = def.SampleRateHertz
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = def.MaxAttempts
	}
	if opts.Backoff.Initial == 0 {
		opts.Backoff = def.Backoff
	}
	return &Client{recognize: recognize, opts: opts}
}

func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

func (c *Client) request(gcsURI string) *speechpb.LongRunningRecognizeRequest {
	return &speechpb.LongRunningRecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   c.opts.Encoding,
			SampleRateHertz:            c.opts.SampleRateHertz,
			LanguageCode:               c.opts.Language,
			EnableAutomaticPunctuation: true,
			EnableWordTimeOffsets:      true,
			DiarizationConfig: &speechpb.SpeakerDiarizationConfig{
				EnableSpeakerDiarization: true,
				MinSpeakerCount:          speakerCount,
				MaxSpeakerCount:          speakerCount,
			},
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Uri{Uri: gcsURI},
		},
	}
}

/*
* Submit the recognition and wait for it under the configured deadline
* Transient failures are retried with exponential backoff up to MaxAttempts
* Everything else is classified and returned as TranscriptionFailed
 */
func (c *Client) Transcribe(ctx context.Context, gcsURI string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	req := c.request(gcsURI)
	bo := c.opts.Backoff

	var lastErr error
	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		resp, err := c.recognize(ctx, req)
		if err == nil {
			text := ReduceResults(resp.GetResults())
			if text == "" {
				return "", &util.AppError{
					Kind:    util.KindTranscriptionFailed,
					Reason:  util.ReasonInvalidArgument,
					Message: "no speech detected in recording",
				}
			}
			return text, nil
		}
		lastErr = err

		if timedOut(ctx, err) {
			return "", util.NewError(util.KindTranscriptionTimeout, "transcription did not finish in time", err)
		}
		if !retryable(err) || attempt == c.opts.MaxAttempts {
			break
		}

		pause := bo.Pause()
		log.Warn().Err(err).Int("attempt", attempt).Dur("pause", pause).Msg("Transient transcription failure, retrying")
		if err := gax.Sleep(ctx, pause); err != nil {
			return "", util.NewError(util.KindTranscriptionTimeout, "transcription did not finish in time", lastErr)
		}
	}

	reason := Classify(lastErr)
	log.Error().Err(lastErr).Str("reason", reason).Msg("Error from speech recognition")
	return "", &util.AppError{
		Kind:    util.KindTranscriptionFailed,
		Reason:  reason,
		Message: "transcription failed: " + reason,
		Err:     lastErr,
	}
}

func timedOut(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	return status.Code(err) == codes.DeadlineExceeded
}

func retryable(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted, codes.Aborted:
		return true
	}
	return false
}

// Classify maps a speech failure onto the reasons surfaced to clients.
func Classify(err error) string {
	if err == nil {
		return util.ReasonUnknown
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return util.ReasonNetworkUnreachable
	}
	switch status.Code(err) {
	case codes.Unavailable:
		return util.ReasonNetworkUnreachable
	case codes.Unauthenticated:
		return util.ReasonAuthFailed
	case codes.PermissionDenied:
		return util.ReasonPermissionDenied
	case codes.InvalidArgument, codes.NotFound, codes.FailedPrecondition, codes.OutOfRange:
		return util.ReasonInvalidArgument
	}
	return util.ReasonUnknown
}
