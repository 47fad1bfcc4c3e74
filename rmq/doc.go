// Package rmq publishes webhook delivery outcomes to RabbitMQ, so that other services
// can react to a CI-triggered delivery without polling the CI system. Messages are
// JSON-encoded and sent to a durable fanout exchange: every consumer that binds its own
// queue to that exchange receives a copy.
package rmq
