package execution

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/jduhalde/consulting/internal/config"
	"github.com/jduhalde/consulting/internal/pgmq"
)

type jobMessage struct {
	JobID string `json:"job_id"`
}

// Run drains the jobs queue until the context is cancelled. Each message
// carries one job id; messages that cannot be processed go to the
// dead-letter queue.
func Run(ctx context.Context, cfg *config.Config, client *pgmq.Client, processor *Processor, logger zerolog.Logger) error {
	queue := cfg.JobsQueueName
	dlq := cfg.JobsDeadLetterQueueName
	logger.Info().Str("queue", queue).Msg("Starting execution worker")

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Shutting down execution worker")
			return nil
		default:
		}

		msgs, err := client.ReadWithPoll(ctx, queue, cfg.JobsPollTimeoutSec, cfg.JobsPollMaxMsg)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info().Msg("Shutting down execution worker")
				return nil
			}
			logger.Error().Err(err).Msg("Error reading jobs queue")
			time.Sleep(time.Second)
			continue
		}
		if len(msgs) == 0 {
			continue
		}

		msg := msgs[0]
		logger.Info().Int64("msg_id", msg.ID).Msg("Received job message")

		var payload jobMessage
		if err := json.Unmarshal(msg.Data, &payload); err != nil || payload.JobID == "" {
			logger.Error().Err(err).Int64("msg_id", msg.ID).Msg("Malformed job message; deleting")
			if err := client.Delete(ctx, queue, []int64{msg.ID}); err != nil {
				logger.Error().Err(err).Msg("Error deleting malformed job message")
			}
			continue
		}

		if err := processor.Process(ctx, payload.JobID); err != nil {
			logger.Error().Err(err).Str("job_id", payload.JobID).Msg("Job processing failed; moving message to DLQ")
			if err := client.Send(ctx, dlq, msg.Data); err != nil {
				logger.Error().Err(err).Str("dlq", dlq).Msg("Failed to send message to dead-letter queue")
			}
		}

		if err := client.Delete(ctx, queue, []int64{msg.ID}); err != nil {
			logger.Error().Err(err).Int64("msg_id", msg.ID).Msg("Error deleting job message")
		}
	}
}
