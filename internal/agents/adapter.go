package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Role identifies an agent within the pipeline.
type Role string

const (
	RoleScanner   Role = "scanner"
	RoleAnalyzer  Role = "analyzer"
	RoleGenerator Role = "generator"
)

// Input is one agent request. Corrections accumulate across retry attempts
// and are appended to the user message so the agent can self-correct.
type Input struct {
	System      string
	User        string
	Corrections []string
}

// Messages renders the input as an eino message list.
func (in Input) Messages() []*schema.Message {
	user := in.User
	if len(in.Corrections) > 0 {
		var b strings.Builder
		b.WriteString(user)
		b.WriteString("\n\nYour previous reply was rejected. Fix the following and answer again with a single JSON object:\n")
		for _, c := range in.Corrections {
			b.WriteString("- ")
			b.WriteString(c)
			b.WriteString("\n")
		}
		user = b.String()
	}
	return []*schema.Message{
		schema.SystemMessage(in.System),
		schema.UserMessage(user),
	}
}

// Agent is the uniform request/response contract over heterogeneous
// decision-making backends. Invoke returns the raw JSON object extracted
// from the reply, or one of TransportError, TimeoutError, SchemaError.
type Agent interface {
	Role() Role
	Invoke(ctx context.Context, in Input) (json.RawMessage, error)
}

// ChatAgent is an Agent backed by an eino chat model.
type ChatAgent struct {
	role    Role
	model   model.BaseChatModel
	timeout time.Duration
	log     zerolog.Logger
}

func NewChatAgent(role Role, cm model.BaseChatModel, timeout time.Duration, log zerolog.Logger) *ChatAgent {
	return &ChatAgent{
		role:    role,
		model:   cm,
		timeout: timeout,
		log:     log.With().Str("agent", string(role)).Logger(),
	}
}

func (a *ChatAgent) Role() Role { return a.role }

func (a *ChatAgent) Invoke(ctx context.Context, in Input) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	msg, err := a.model.Generate(ctx, in.Messages())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &TimeoutError{Role: a.role, Limit: a.timeout}
		}
		return nil, &TransportError{Role: a.role, Err: err}
	}
	a.log.Debug().Dur("elapsed", time.Since(start)).Int("reply_len", len(msg.Content)).Msg("agent replied")

	raw, err := ExtractJSON(msg.Content)
	if err != nil {
		return nil, &SchemaError{
			Role:       a.role,
			Violations: []string{"reply did not contain a JSON object"},
			Err:        err,
		}
	}
	return raw, nil
}

// ExtractJSON pulls the first JSON object out of a model reply, tolerating
// markdown code fences and surrounding prose.
func ExtractJSON(content string) (json.RawMessage, error) {
	content = strings.TrimSpace(content)
	if idx := strings.Index(content, "```"); idx >= 0 {
		content = content[idx+3:]
		content = strings.TrimPrefix(content, "json")
		if end := strings.Index(content, "```"); end >= 0 {
			content = content[:end]
		}
	}
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in reply")
	}
	raw := json.RawMessage(content[start : end+1])
	if !json.Valid(raw) {
		return nil, fmt.Errorf("reply JSON is malformed")
	}
	return raw, nil
}

var validate = newValidator()

// newValidator reports violations by json field name, since that is the
// vocabulary the agent replied in.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Decode unmarshals and validates a raw agent reply into its typed schema.
// Any failure comes back as a SchemaError with per-field violations.
func Decode[T any](role Role, raw json.RawMessage) (*T, error) {
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &SchemaError{
			Role:       role,
			Violations: []string{fmt.Sprintf("JSON does not match the expected shape: %v", err)},
			Err:        err,
		}
	}
	if err := validate.Struct(&out); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			violations := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				violations = append(violations, describeViolation(fe))
			}
			return nil, &SchemaError{Role: role, Violations: violations, Err: err}
		}
		return nil, &SchemaError{Role: role, Violations: []string{err.Error()}, Err: err}
	}
	return &out, nil
}

func describeViolation(fe validator.FieldError) string {
	field := fe.Namespace()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("field %q is missing", field)
	case "required_if", "required_with":
		return fmt.Sprintf("field %q is required here but missing", field)
	case "oneof":
		return fmt.Sprintf("field %q must be one of [%s], got %q", field, fe.Param(), fe.Value())
	case "gte", "min":
		return fmt.Sprintf("field %q must be >= %s", field, fe.Param())
	case "lte", "max":
		return fmt.Sprintf("field %q must be <= %s", field, fe.Param())
	default:
		return fmt.Sprintf("field %q failed constraint %q", field, fe.Tag())
	}
}
