package realtime

import (
	"errors"
	"sort"
	"strings"

	"chat-core/internal/metrics"
	"chat-core/internal/models"
	"chat-core/internal/utils"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

var ErrDeliveryFailed = errors.New("delivery failed")

// Report summarizes one fan-out. Skipped counts targets that closed after
// they were resolved, which is an expected race rather than a failure.
type Report struct {
	Targets   int
	Delivered int
	Skipped   int
	Failed    int
}

// Option narrows the resolved recipient set.
type Option func(*deliveryPolicy)

type deliveryPolicy struct {
	excludeConn string
	excludeUser string
}

// ExcludeConn skips a single connection, typically the one that issued a
// request/response style call.
func ExcludeConn(connID string) Option {
	return func(p *deliveryPolicy) { p.excludeConn = connID }
}

// ExcludeUser skips every connection of a user.
func ExcludeUser(userID string) Option {
	return func(p *deliveryPolicy) { p.excludeUser = userID }
}

// Dispatcher resolves live recipients and pushes serialized events onto
// their send queues. It never waits on a slow consumer.
type Dispatcher struct {
	registry *Registry
	tracker  *Tracker
	seq      *utils.KeyedMutex
	log      zerolog.Logger

	// onFailure handles a connection whose enqueue failed. Defaults to
	// closing it so the transport tears the session down.
	onFailure func(c *Conn, err error)
}

func NewDispatcher(registry *Registry, tracker *Tracker, log zerolog.Logger) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		tracker:  tracker,
		seq:      utils.NewKeyedMutex(0),
		log:      log.With().Str("component", "dispatcher").Logger(),
	}
	d.onFailure = d.evict
	return d
}

// ToRoom delivers to the room's current members.
func (d *Dispatcher) ToRoom(roomID string, evt models.Event, opts ...Option) Report {
	unlock := d.seq.Lock("room:" + roomID)
	defer unlock()
	return d.Deliver(evt, filterTargets(d.tracker.MembersOf(roomID), opts))
}

// ToUsers delivers to every live connection of the given users. Deliveries
// for the same user set are sequenced regardless of argument order.
func (d *Dispatcher) ToUsers(userIDs []string, evt models.Event, opts ...Option) Report {
	ids := lo.Uniq(lo.Compact(userIDs))
	sort.Strings(ids)
	unlock := d.seq.Lock("users:" + strings.Join(ids, ","))
	defer unlock()

	var targets []*Conn
	for _, id := range ids {
		targets = append(targets, d.registry.ConnectionsFor(id)...)
	}
	return d.Deliver(evt, filterTargets(targets, opts))
}

// Deliver pushes evt to each target. A full queue is logged and the
// connection handed to the failure handler; a closed one is skipped. Other
// targets are unaffected either way.
func (d *Dispatcher) Deliver(evt models.Event, targets []*Conn) Report {
	report := Report{Targets: len(targets)}
	if len(targets) == 0 {
		return report
	}

	payload, err := utils.EncodeJSON(evt)
	if err != nil {
		d.log.Error().Err(err).Str("event", evt.Event).Msg("encode event")
		report.Failed = len(targets)
		return report
	}

	for _, c := range targets {
		if err := c.TrySend(payload); err != nil {
			if errors.Is(err, ErrConnClosed) {
				report.Skipped++
				metrics.Deliveries.WithLabelValues("skipped").Inc()
				d.log.Debug().
					Str("conn_id", c.ID).
					Str("event", evt.Event).
					Msg("target closed before delivery")
				continue
			}
			report.Failed++
			metrics.Deliveries.WithLabelValues("failed").Inc()
			d.log.Warn().Err(err).
				Str("conn_id", c.ID).
				Str("user_id", c.UserID).
				Str("event", evt.Event).
				Msg("delivery failed")
			d.onFailure(c, err)
			continue
		}
		report.Delivered++
		metrics.Deliveries.WithLabelValues("delivered").Inc()
	}
	return report
}

// SendTo delivers to a single connection.
func (d *Dispatcher) SendTo(c *Conn, evt models.Event) error {
	if r := d.Deliver(evt, []*Conn{c}); r.Delivered == 0 {
		return ErrDeliveryFailed
	}
	return nil
}

func (d *Dispatcher) evict(c *Conn, err error) {
	if !c.Alive() {
		return
	}
	metrics.Evictions.Inc()
	// The transport notices Done and runs the regular disconnect cleanup.
	c.Close()
}

func filterTargets(conns []*Conn, opts []Option) []*Conn {
	if len(opts) == 0 {
		return conns
	}
	var p deliveryPolicy
	for _, opt := range opts {
		opt(&p)
	}
	return lo.Filter(conns, func(c *Conn, _ int) bool {
		if p.excludeConn != "" && c.ID == p.excludeConn {
			return false
		}
		if p.excludeUser != "" && c.UserID == p.excludeUser {
			return false
		}
		return true
	})
}
