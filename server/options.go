package server

import (
	"context"
	"time"
)

type Option func(*Options)

type Options struct {
	Namespace       string
	Name            string
	Address         string
	ShutdownTimeout time.Duration
	Context         context.Context
}

func WithNamespace(n string) Option {
	return func(o *Options) {
		o.Namespace = n
	}
}

func WithName(n string) Option {
	return func(o *Options) {
		o.Name = n
	}
}

func WithAddress(addr string) Option {
	return func(o *Options) {
		o.Address = addr
	}
}

func WithShutdownTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.ShutdownTimeout = d
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		Address:         ":0",
		ShutdownTimeout: 10 * time.Second,
		Context:         context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
