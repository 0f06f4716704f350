package mq

import (
	"fmt"

	"github.com/rabbitmq/amqp091-go"
)

// DefaultExchange 未配置 exchange 时使用
const DefaultExchange = "mailtriage.events"

// NewConnection 创建 RabbitMQ 连接
func NewConnection(url string) (*amqp091.Connection, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

// DeclareExchange 声明事件发布用的持久化 topic 交换机
func DeclareExchange(ch *amqp091.Channel, name string) error {
	return ch.ExchangeDeclare(
		name,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
}
