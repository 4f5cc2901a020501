// Package notegen asks the language model to write a consult note from a transcript.
package notegen

import (
	"context"
	"fmt"
	"strings"

	"Attentus/util"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

// Context is the demographic and visit information handed to the model with the transcript.
type Context struct {
	DoctorName  string
	PatientName string
	Sex         string
	Age         int
	Weight      *float64
	Height      *float64
	Date        string
	Time        string
	Title       string
}

type Request struct {
	Transcript string
	Template   string
	Context    Context
}

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Options struct {
	Model       string
	MaxTokens   int
	Temperature float32
}

type Client struct {
	api  chatCompleter
	opts Options
}

func New(apiKey string, opts Options) *Client {
	return newClient(openai.NewClient(apiKey), opts)
}

func newClient(api chatCompleter, opts Options) *Client {
	if opts.Model == "" {
		opts.Model = openai.GPT4oMini
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1500
	}
	return &Client{api: api, opts: opts}
}

/*
* Build the system and user messages
* Ask for a bounded, low temperature completion
* An error or an empty completion is NoteGenerationFailed
 */
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.opts.Model,
		MaxTokens:   c.opts.MaxTokens,
		Temperature: c.opts.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: UserPrompt(req)},
		},
	})
	if err != nil {
		log.Error().Err(err).Str("model", c.opts.Model).Msg("Error from note generation")
		return "", util.NewError(util.KindNoteGenerationFailed, "consult note generation failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", util.NewError(util.KindNoteGenerationFailed, "consult note generation returned no choices", nil)
	}
	note := strings.TrimSpace(resp.Choices[0].Message.Content)
	if note == "" {
		return "", util.NewError(util.KindNoteGenerationFailed, "consult note generation returned an empty note", nil)
	}
	return note, nil
}

const systemPrompt = `You are a medical scribe writing consultation notes for a doctor.
The transcript lines are labelled DOCTOR and PATIENT by an automatic speaker heuristic that can be wrong; decide who is speaking from what is said (questions, examination, advice versus symptoms and history).
Extract the chief complaint, history of present illness, examination findings, assessment, plan and follow-up.
Use the patient details and vitals provided when they are clinically relevant. Do not invent findings that are not in the transcript.
Reproduce the doctor's template exactly: the same section headings, in the same order, with the same formatting. Output only the note.`

// UserPrompt renders the transcript, template and visit context.
func UserPrompt(req Request) string {
	var b strings.Builder
	ctx := req.Context

	b.WriteString("Consultation details:\n")
	fmt.Fprintf(&b, "- Doctor: %s\n", orUnknown(ctx.DoctorName))
	fmt.Fprintf(&b, "- Patient: %s\n", orUnknown(ctx.PatientName))
	fmt.Fprintf(&b, "- Sex: %s\n", orUnknown(ctx.Sex))
	if ctx.Age > 0 {
		fmt.Fprintf(&b, "- Age: %d years\n", ctx.Age)
	}
	if ctx.Weight != nil {
		fmt.Fprintf(&b, "- Weight: %g kg\n", *ctx.Weight)
	}
	if ctx.Height != nil {
		fmt.Fprintf(&b, "- Height: %g cm\n", *ctx.Height)
	}
	if ctx.Date != "" {
		fmt.Fprintf(&b, "- Date: %s %s\n", ctx.Date, ctx.Time)
	}
	if ctx.Title != "" {
		fmt.Fprintf(&b, "- Visit: %s\n", ctx.Title)
	}

	b.WriteString("\nTranscript:\n###\n")
	b.WriteString(strings.TrimSpace(req.Transcript))
	b.WriteString("\n###\n\nNote template:\n###\n")
	b.WriteString(strings.TrimSpace(req.Template))
	b.WriteString("\n###\n\nWrite the complete consultation note following the template exactly.")
	return b.String()
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}
