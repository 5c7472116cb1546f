// Package chathistory persists chat exchanges. Postgres keeps the history
// table the support desk reads; Elasticsearch optionally archives the full
// exchange for analytics.
package chathistory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"loan-assistant/internal/common/database"
	apperrors "loan-assistant/internal/common/errors"
	"loan-assistant/internal/common/logger"
	"loan-assistant/internal/common/metrics"
	"loan-assistant/internal/models"
)

const historyTable = "chat_history"

// Recorder stores one exchange.
type Recorder interface {
	RecordExchange(ctx context.Context, exchange models.ChatExchange) error
}

// PostgresRecorder inserts into the chat_history table. The table lives in
// the connection's search path, not the loan schema.
type PostgresRecorder struct {
	pg     *database.PostgresClient
	query  string
	logger logger.Logger
}

func NewPostgresRecorder(pg *database.PostgresClient, log logger.Logger) *PostgresRecorder {
	return &PostgresRecorder{
		pg: pg,
		query: fmt.Sprintf(`INSERT INTO %s (user_message, bot_response, session_id)
	VALUES ($1, $2, $3)`, historyTable),
		logger: log.With(map[string]interface{}{"component": "chat-history", "sink": "postgres"}),
	}
}

func (r *PostgresRecorder) RecordExchange(ctx context.Context, exchange models.ChatExchange) error {
	session := sql.NullString{String: exchange.SessionToken, Valid: exchange.SessionToken != ""}

	if _, err := r.pg.Exec(ctx, r.query, exchange.Message, exchange.Response, session); err != nil {
		metrics.ExchangeRecordFailures.WithLabelValues("postgres").Inc()
		r.logger.Warn("failed to record exchange", map[string]interface{}{
			"exchangeId": exchange.ExchangeID.String(),
			"error":      err,
		})
		return apperrors.NewExchangeRecordFailedError("postgres", err)
	}
	return nil
}

// ElasticsearchRecorder indexes the exchange under its id.
type ElasticsearchRecorder struct {
	es     *database.ElasticsearchClient
	index  string
	logger logger.Logger
}

func NewElasticsearchRecorder(es *database.ElasticsearchClient, index string, log logger.Logger) *ElasticsearchRecorder {
	if index == "" {
		index = "chat-exchanges"
	}
	return &ElasticsearchRecorder{
		es:     es,
		index:  index,
		logger: log.With(map[string]interface{}{"component": "chat-history", "sink": "elasticsearch"}),
	}
}

func (r *ElasticsearchRecorder) RecordExchange(ctx context.Context, exchange models.ChatExchange) error {
	if err := r.es.IndexDocument(ctx, r.index, exchange.ExchangeID.String(), exchange); err != nil {
		metrics.ExchangeRecordFailures.WithLabelValues("elasticsearch").Inc()
		r.logger.Warn("failed to archive exchange", map[string]interface{}{
			"exchangeId": exchange.ExchangeID.String(),
			"error":      err,
		})
		return apperrors.NewExchangeRecordFailedError("elasticsearch", err)
	}
	return nil
}

// MultiRecorder writes to every sink and joins their failures. A failing
// sink does not stop the others.
type MultiRecorder []Recorder

func (m MultiRecorder) RecordExchange(ctx context.Context, exchange models.ChatExchange) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.RecordExchange(ctx, exchange); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
