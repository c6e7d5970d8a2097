package gmail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/teemow/todoagent/internal/email"
	"github.com/teemow/todoagent/internal/instrumentation"
	"github.com/teemow/todoagent/internal/logging"
)

const (
	me           = "me"
	maxPageSize  = 100
	defaultFetch = 20
)

// Client is the Gmail side of the agent: it lists and fetches messages and
// reads and writes the TodoAgent labels.
type Client struct {
	svc     *gmail.UsersService
	labels  *labelCache
	cb      *gobreaker.CircuitBreaker
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// Config configures a Client.
type Config struct {
	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
}

// NewClient creates a Gmail client. Authentication is supplied through opts,
// typically option.WithHTTPClient with a client from the google package.
func NewClient(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Client, error) {
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	logger := logging.WithComponent(logging.OrDefault(cfg.Logger), "gmail")

	c := &Client{
		svc:     svc.Users,
		logger:  logger,
		metrics: cfg.Metrics,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "gmail-api",
			MaxRequests: 3,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.ConsecutiveFailures > 5 ||
					(counts.Requests >= 10 && failureRatio >= 0.6)
			},
			// a missing message says nothing about the health of the API
			IsSuccessful: func(err error) bool {
				return err == nil || isNotFound(err)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state changed",
					slog.String("breaker", name),
					slog.String("from", from.String()),
					slog.String("to", to.String()))
			},
		}),
	}
	c.labels = newLabelCache(c)
	return c, nil
}

// Available reports whether the Gmail circuit breaker lets calls through.
func (c *Client) Available() bool {
	return c.cb.State() != gobreaker.StateOpen
}

// FetchEmails returns up to max messages matching a Gmail search query,
// newest first.
func (c *Client) FetchEmails(ctx context.Context, query string, max int) ([]*email.Email, error) {
	if max <= 0 {
		max = defaultFetch
	}

	var ids []string
	pageToken := ""
	for len(ids) < max {
		pageSize := min(max-len(ids), maxPageSize)
		var res *gmail.ListMessagesResponse
		err := c.execute(ctx, instrumentation.ServiceGmail, instrumentation.OperationList, func(ctx context.Context) error {
			req := c.svc.Messages.List(me).Q(query).MaxResults(int64(pageSize)).Context(ctx)
			if pageToken != "" {
				req = req.PageToken(pageToken)
			}
			var err error
			res, err = req.Do()
			return err
		})
		if err != nil {
			return nil, wrapError(err, "failed to list messages")
		}
		for _, m := range res.Messages {
			ids = append(ids, m.Id)
		}
		if res.NextPageToken == "" {
			break
		}
		pageToken = res.NextPageToken
	}
	if len(ids) > max {
		ids = ids[:max]
	}

	out := make([]*email.Email, 0, len(ids))
	for _, id := range ids {
		msg, err := c.FetchEmailByID(ctx, id)
		if errors.Is(err, email.ErrNotFound) {
			// deleted between list and get
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, nil
}

// FetchEmailByID fetches one message. A message that does not exist yields
// an error wrapping email.ErrNotFound.
func (c *Client) FetchEmailByID(ctx context.Context, id string) (*email.Email, error) {
	var msg *gmail.Message
	err := c.execute(ctx, instrumentation.ServiceGmail, instrumentation.OperationGet, func(ctx context.Context) error {
		var err error
		msg, err = c.svc.Messages.Get(me, id).Format("full").Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, wrapError(err, "failed to get message "+id)
	}

	names, err := c.labels.names(ctx, msg.LabelIds)
	if err != nil {
		return nil, err
	}
	return toEmail(msg, names), nil
}

// AddLabel adds a label to a message, creating the label on first use.
func (c *Client) AddLabel(ctx context.Context, emailID, label string) error {
	id, err := c.labels.ensure(ctx, label)
	if err != nil {
		return err
	}
	return c.modify(ctx, emailID, &gmail.ModifyMessageRequest{AddLabelIds: []string{id}})
}

// RemoveLabel removes a label from a message. Removing a label that does not
// exist in the mailbox is a no-op.
func (c *Client) RemoveLabel(ctx context.Context, emailID, label string) error {
	id, ok, err := c.labels.lookup(ctx, label)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return c.modify(ctx, emailID, &gmail.ModifyMessageRequest{RemoveLabelIds: []string{id}})
}

// EnsureLabels creates every TodoAgent label that is missing.
func (c *Client) EnsureLabels(ctx context.Context) error {
	for _, l := range email.AllLabels {
		if _, err := c.labels.ensure(ctx, l); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) modify(ctx context.Context, emailID string, req *gmail.ModifyMessageRequest) error {
	err := c.execute(ctx, instrumentation.ServiceGmail, instrumentation.OperationModify, func(ctx context.Context) error {
		_, err := c.svc.Messages.Modify(me, emailID, req).Context(ctx).Do()
		return err
	})
	if err != nil {
		return wrapError(err, "failed to modify labels of message "+emailID)
	}
	return nil
}

// execute runs a Gmail call through the circuit breaker inside a span and
// records its duration.
func (c *Client) execute(ctx context.Context, service, op string, fn func(ctx context.Context) error) error {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, service, op)
	defer span.End()

	start := time.Now()
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, fn(ctx)
	})

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	}
	c.metrics.RecordGoogleAPIOperation(ctx, service, op, status, time.Since(start))
	return err
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}

// wrapError maps Gmail API errors onto the agent's sentinels.
func wrapError(err error, msg string) error {
	if isNotFound(err) {
		return fmt.Errorf("%s: %w", msg, email.ErrNotFound)
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized:
			return fmt.Errorf("%s: Google token expired or revoked: %w", msg, err)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%s: rate limited: %w", msg, err)
		}
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s: Gmail temporarily unavailable: %w", msg, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// userLabelPrefix starts the ID of every label a user or app created.
const userLabelPrefix = "Label_"

// labelCache maps label names to Gmail label IDs. It is loaded on first use
// and refreshed when a name is missing.
type labelCache struct {
	c      *Client
	mu     sync.Mutex
	loaded bool
	byName map[string]string
	byID   map[string]string
}

func newLabelCache(c *Client) *labelCache {
	return &labelCache{c: c, byName: map[string]string{}, byID: map[string]string{}}
}

func (lc *labelCache) refreshLocked(ctx context.Context) error {
	var res *gmail.ListLabelsResponse
	err := lc.c.execute(ctx, instrumentation.ServiceGmail, instrumentation.OperationList, func(ctx context.Context) error {
		var err error
		res, err = lc.c.svc.Labels.List(me).Context(ctx).Do()
		return err
	})
	if err != nil {
		return wrapError(err, "failed to list labels")
	}
	lc.byName = make(map[string]string, len(res.Labels))
	lc.byID = make(map[string]string, len(res.Labels))
	for _, l := range res.Labels {
		lc.byName[l.Name] = l.Id
		lc.byID[l.Id] = l.Name
	}
	lc.loaded = true
	return nil
}

// lookup returns the ID of a label without creating it.
func (lc *labelCache) lookup(ctx context.Context, name string) (string, bool, error) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if id, ok := lc.byName[name]; ok {
		return id, true, nil
	}
	if err := lc.refreshLocked(ctx); err != nil {
		return "", false, err
	}
	id, ok := lc.byName[name]
	return id, ok, nil
}

// ensure returns the ID of a label, creating the label when it is missing.
func (lc *labelCache) ensure(ctx context.Context, name string) (string, error) {
	id, ok, err := lc.lookup(ctx, name)
	if err != nil || ok {
		return id, err
	}

	lc.mu.Lock()
	defer lc.mu.Unlock()
	if id, ok := lc.byName[name]; ok {
		return id, nil
	}

	var created *gmail.Label
	err = lc.c.execute(ctx, instrumentation.ServiceGmail, instrumentation.OperationCreate, func(ctx context.Context) error {
		var err error
		created, err = lc.c.svc.Labels.Create(me, &gmail.Label{
			Name:                  name,
			LabelListVisibility:   "labelShow",
			MessageListVisibility: "show",
		}).Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", wrapError(err, "failed to create label "+name)
	}
	lc.byName[created.Name] = created.Id
	lc.byID[created.Id] = created.Name
	lc.c.logger.Info("created Gmail label", logging.Label(name))
	return created.Id, nil
}

// names translates label IDs into names. System labels such as INBOX use
// their name as ID, so unknown IDs are passed through unchanged. An unknown
// user label ID means the label was created after the last load, so the
// cache is reloaded once.
func (lc *labelCache) names(ctx context.Context, ids []string) ([]string, error) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	stale := !lc.loaded
	for _, id := range ids {
		if _, ok := lc.byID[id]; !ok && strings.HasPrefix(id, userLabelPrefix) {
			stale = true
			break
		}
	}
	if stale {
		if err := lc.refreshLocked(ctx); err != nil {
			return nil, err
		}
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		if name, ok := lc.byID[id]; ok {
			out[i] = name
		} else {
			out[i] = id
		}
	}
	return out, nil
}
