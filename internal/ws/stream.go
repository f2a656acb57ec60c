package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/splax/teamboard/internal/domain"
	"github.com/splax/teamboard/internal/service/paging"
)

// Frame is a server message on a live view connection.
type Frame[T any] struct {
	Type       string           `json:"type"`
	Items      []T              `json:"items"`
	State      paging.LoadState `json:"state,omitempty"`
	NextCursor string           `json:"next_cursor,omitempty"`
	Error      string           `json:"error,omitempty"`
	Code       string           `json:"code,omitempty"`
}

// Commander reads client commands. *Client implements it.
type Commander interface {
	Sink
	ReadCommand() (Command, error)
}

// Source is a closable change subscription.
type Source interface {
	paging.Source
	Close()
}

// Stream pumps one live view to one client: a snapshot after the first page,
// after every visible change and after every load_more command.
type Stream[T any] struct {
	view   *paging.View[T]
	source Source
	client Commander
	log    *slog.Logger
}

// NewStream couples a view with its change subscription and client.
func NewStream[T any](view *paging.View[T], source Source, client Commander, logger *slog.Logger) *Stream[T] {
	return &Stream[T]{view: view, source: source, client: client, log: logger}
}

var errClientGone = errors.New("ws: client disconnected")

// Run serves the stream until the client leaves, ctx ends or the view is
// invalidated. Source and client are closed on return.
func (s *Stream[T]) Run(ctx context.Context) error {
	defer s.source.Close()
	defer s.client.Close()

	if err := s.view.LoadMore(ctx); err != nil {
		s.fail(err)
		return err
	}
	if err := s.snapshot(); err != nil {
		return nil
	}

	var watchErr error
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := s.view.Watch(gctx, s.source, func() {
			if s.view.Err() == nil {
				_ = s.snapshot()
			}
		})
		if err != nil {
			s.fail(err)
			watchErr = err
		}
		s.client.Close()
		return err
	})
	g.Go(func() error {
		for {
			cmd, err := s.client.ReadCommand()
			if err != nil {
				return errClientGone
			}
			switch cmd.Type {
			case "load_more":
				if err := s.view.LoadMore(gctx); err != nil {
					s.fail(err)
					if s.view.Err() != nil {
						return err
					}
					continue
				}
				_ = s.snapshot()
			default:
				s.fail(domain.ErrInvalidInput)
			}
		}
	})
	err := g.Wait()
	if watchErr != nil {
		return watchErr
	}
	if err != nil && !errors.Is(err, errClientGone) {
		return err
	}
	return nil
}

func (s *Stream[T]) snapshot() error {
	items := s.view.Items()
	if items == nil {
		items = []T{}
	}
	return s.send(Frame[T]{
		Type:       "snapshot",
		Items:      items,
		State:      s.view.State(),
		NextCursor: s.view.NextCursor(),
	})
}

func (s *Stream[T]) fail(err error) {
	msg := err.Error()
	code := domain.ErrorCode(err)
	if code == "internal" {
		s.log.Error("live view failed", "error", err)
		msg = "internal error"
	}
	_ = s.send(Frame[T]{Type: "error", Error: msg, Code: code})
}

func (s *Stream[T]) send(frame Frame[T]) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return s.client.Send(payload)
}
