// Package chatreply answers chat messages arriving as Zeebe jobs, so a BPMN
// process can hand a borrower's message to the assistant.
package chatreply

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "loan-assistant/internal/common/errors"
	"loan-assistant/internal/common/logger"
	"loan-assistant/internal/common/metrics"
	"loan-assistant/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "chat-reply"

// Replier produces the reply for one message.
type Replier interface {
	Reply(ctx context.Context, message, token string) string
}

// Retrier resends a Zeebe command while its failure looks transient.
type Retrier interface {
	ExecuteWithRetry(ctx context.Context, commandFunc func(context.Context) (interface{}, error), operationName string) (interface{}, error)
}

type Handler struct {
	config     *Config
	activity   registry.Activity
	replier    Replier
	retrier    Retrier
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, replier Replier, log logger.Logger) *Handler {
	if config.Timeout <= 0 {
		config.Timeout = 45 * time.Second
	}
	if config.MaxMessageLength <= 0 {
		config.MaxMessageLength = 1000
	}
	scoped := log.With(map[string]interface{}{"taskType": TaskType})
	activity, err := registry.Default().Activity(TaskType)
	if err != nil {
		scoped.Warn("no registry entry, job variables are not schema-checked", nil)
	}
	return &Handler{
		config:     config,
		activity:   activity,
		replier:    replier,
		errHandler: apperrors.NewErrorHandler(scoped),
		logger:     scoped,
	}
}

// WithRetrier makes job completion retry through r.
func (h *Handler) WithRetrier(r Retrier) *Handler {
	h.retrier = r
	return h
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := h.parseInput(job.Variables)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.fail(ctx, client, job, apperrors.NewInternalError(err))
		return
	}
	err = h.send(ctx, "complete-job", func(ctx context.Context) (interface{}, error) {
		return cmd.Send(ctx)
	})
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

func (h *Handler) send(ctx context.Context, operation string, command func(context.Context) (interface{}, error)) error {
	if h.retrier == nil {
		_, err := command(ctx)
		return err
	}
	_, err := h.retrier.ExecuteWithRetry(ctx, command, operation)
	return err
}

// Execute validates the message and asks the replier for an answer. The
// replier never fails, so only invalid input is an error.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	message := strings.TrimSpace(input.Message)
	if message == "" {
		return nil, apperrors.NewMessageInvalidError("message is empty")
	}
	if n := utf8.RuneCountInString(message); n > h.config.MaxMessageLength {
		return nil, apperrors.NewMessageInvalidError(
			fmt.Sprintf("message has %d characters, limit is %d", n, h.config.MaxMessageLength))
	}

	reply := h.replier.Reply(ctx, message, input.SessionID)
	return &Output{
		Response:  reply,
		Timestamp: time.Now().Format(time.RFC3339),
	}, nil
}

// parseInput checks the job variables against the registered input schema
// before decoding them.
func (h *Handler) parseInput(variables string) (*Input, error) {
	if err := h.activity.ValidateInput([]byte(variables)); err != nil {
		return nil, apperrors.NewMessageInvalidError(err.Error())
	}
	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, apperrors.NewMessageInvalidError(fmt.Sprintf("parse input: %v", err))
	}
	return &input, nil
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	code := apperrors.AsStandardError(err).Code
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(code)).Inc()
	h.errHandler.HandleJobError(ctx, client, job, err)
}
