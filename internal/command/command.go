package command

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"slices"
	"strings"
	"sync"

	"desktop2mqtt/internal/broker"
	"desktop2mqtt/internal/bus"
	"desktop2mqtt/internal/queue"
	"desktop2mqtt/internal/types"
)

// Button classes supported by Home Assistant for custom commands.
const (
	ButtonGeneric = ""
	ButtonRestart = "restart"
	ButtonUpdate  = "update"
)

// Definition is single configured custom command.
type Definition struct {
	Name    string `mapstructure:"name"`
	Command string `mapstructure:"command"`
	Icon    string `mapstructure:"icon"`
	Button  string `mapstructure:"button_type"`
}

// Slug returns topic safe id of command.
func (d Definition) Slug() string {
	return Slug(d.Name)
}

// Validate checks that definition can be executed and announced.
func (d Definition) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return errors.New("custom command name is required")
	}
	if strings.ContainsAny(d.Name, "#+/") {
		return fmt.Errorf("custom command %s must not contain topic separators or wildcards", d.Name)
	}
	if slices.Contains(types.ReservedSubtopics, d.Slug()) {
		return fmt.Errorf("custom command %s uses reserved topic %s", d.Name, d.Slug())
	}
	if len(strings.Fields(d.Command)) == 0 {
		return fmt.Errorf("custom command %s has empty command", d.Name)
	}
	switch d.Button {
	case ButtonGeneric, ButtonRestart, ButtonUpdate:
	default:
		return fmt.Errorf("custom command %s has unknown button type %s", d.Name, d.Button)
	}
	return nil
}

// Slug lowercases name and replaces spaces with "-".
func Slug(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "-")
}

// Runner executes argv.
type Runner interface {
	Run(ctx context.Context, argv []string) error
}

// ExecRunner runs commands as child processes.
type ExecRunner struct{}

// Run starts argv and waits for it to finish.
func (ExecRunner) Run(ctx context.Context, argv []string) error {
	return exec.CommandContext(ctx, argv[0], argv[1:]...).Run()
}

// Executor runs custom commands triggered over mqtt.
// It should be created by New().
type Executor struct {
	definitions map[string]Definition
	topics      []string
	commands    *queue.Queue[types.MQTTCommand]
	inbound     chan bus.Event
	runner      Runner
	wg          sync.WaitGroup
}

// New creates Executor and subscribes to inbound mqtt messages.
func New(opts *Options) (*Executor, error) {
	e := &Executor{
		definitions: make(map[string]Definition),
		commands:    opts.Commands,
		runner:      opts.Runner,
	}
	if e.runner == nil {
		e.runner = ExecRunner{}
	}

	for _, d := range opts.Definitions {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		topic := opts.Topics.Command(d.Slug())
		if _, ok := e.definitions[topic]; ok {
			return nil, fmt.Errorf("custom command %s is defined more than once", d.Slug())
		}
		e.definitions[topic] = d
		e.topics = append(e.topics, topic)
	}

	if len(e.definitions) == 0 {
		return e, nil
	}

	ch, err := opts.Bus.Subscribe(broker.InboundChannel, "command", broker.InboundChannelSize)
	if err != nil {
		return nil, err
	}
	e.inbound = ch
	return e, nil
}

// Run subscribes command topics and executes matching commands until inbound channel is closed.
func (e *Executor) Run(ctx context.Context) error {
	if e.inbound == nil {
		return nil
	}
	defer e.wg.Wait()

	for _, topic := range e.topics {
		if err := e.commands.Send(types.Subscribe(topic)); err != nil {
			return fmt.Errorf("unable to subscribe %s: %w", topic, err)
		}
	}

	for {
		select {
		case event, ok := <-e.inbound:
			if !ok {
				return nil
			}
			msg := event.Data.(types.MQTTMessage)
			d, ok := e.definitions[msg.Topic]
			if !ok {
				continue
			}
			e.wg.Add(1)
			go func() {
				defer e.wg.Done()
				e.execute(ctx, d)
			}()
		case <-ctx.Done():
			return nil
		}
	}
}

func (e *Executor) execute(ctx context.Context, d Definition) {
	log.Printf("running custom command %s", d.Name)
	if err := e.runner.Run(ctx, strings.Fields(d.Command)); err != nil {
		log.Printf("custom command %s failed: %s", d.Name, err)
	}
}
