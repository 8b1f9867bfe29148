package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// TaskHandler обрабатывает одну задачу генерации.
// Ошибка означает, что сообщение должно быть отброшено (без requeue):
// повтор генерации инициирует пользователь через запрос ревизии.
type TaskHandler interface {
	HandleTask(ctx context.Context, payload GenerationTaskPayload) error
}

// TaskConsumer читает задачи генерации из очереди и передает их воркеру.
type TaskConsumer struct {
	conn      *amqp.Connection
	handler   TaskHandler
	queueName string
	logger    *zap.Logger
	channel   *amqp.Channel
	done      chan struct{}
}

// NewTaskConsumer создает новый консьюмер задач генерации.
func NewTaskConsumer(conn *amqp.Connection, handler TaskHandler, queueName string, logger *zap.Logger) *TaskConsumer {
	return &TaskConsumer{
		conn:      conn,
		handler:   handler,
		queueName: queueName,
		logger:    logger.Named("TaskConsumer"),
		done:      make(chan struct{}),
	}
}

// Start объявляет очередь и запускает горутину обработки.
// Очередь durable, ack ручной: задача подтверждается только после
// записи результата генерации в базу.
func (c *TaskConsumer) Start(ctx context.Context) error {
	var err error
	c.channel, err = c.conn.Channel()
	if err != nil {
		return fmt.Errorf("task consumer: не удалось открыть канал: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		_ = c.channel.Close()
		return fmt.Errorf("task consumer: не удалось объявить очередь '%s': %w", c.queueName, err)
	}

	// Одна генерация за раз: задачи долгие, prefetch не нужен.
	if err := c.channel.Qos(1, 0, false); err != nil {
		_ = c.channel.Close()
		return fmt.Errorf("task consumer: не удалось установить QoS: %w", err)
	}

	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		_ = c.channel.Close()
		return fmt.Errorf("task consumer: не удалось подписаться на очередь '%s': %w", c.queueName, err)
	}

	c.logger.Info("Task consumer started, waiting for generation tasks...", zap.String("queue", c.queueName))

	go func() {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("Panic recovered in task consumer goroutine", zap.Any("panic", r))
			}
			c.logger.Info("Task consumer goroutine stopping...")
			close(c.done)
			if c.channel != nil {
				_ = c.channel.Close()
			}
		}()

		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					c.logger.Info("Task consumer channel closed, exiting goroutine.")
					return
				}
				c.handleMessage(ctx, msg)
			case <-ctx.Done():
				c.logger.Info("Context cancelled, stopping task consumer goroutine.")
				return
			}
		}
	}()

	return nil
}

func (c *TaskConsumer) handleMessage(ctx context.Context, msg amqp.Delivery) {
	var payload GenerationTaskPayload
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		c.logger.Error("Failed to unmarshal generation task, discarding message", zap.Error(err))
		_ = msg.Nack(false, false)
		return
	}

	log := c.logger.With(
		zap.String("taskID", payload.TaskID.String()),
		zap.String("pageID", payload.PageID.String()),
		zap.String("taskType", payload.TaskType),
	)
	log.Info("Processing generation task")

	if err := c.handler.HandleTask(ctx, payload); err != nil {
		// Handler уже перевел страницу в состояние ошибки; requeue
		// привел бы к повторной генерации без запроса пользователя.
		log.Error("Generation task failed, discarding message", zap.Error(err))
		_ = msg.Nack(false, false)
		return
	}

	if err := msg.Ack(false); err != nil {
		log.Error("Failed to ack generation task", zap.Error(err))
		return
	}
	log.Info("Generation task completed")
}

// Done возвращает канал, закрываемый при остановке горутины консьюмера.
func (c *TaskConsumer) Done() <-chan struct{} {
	return c.done
}
