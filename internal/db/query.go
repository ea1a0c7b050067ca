package db

import (
	"fmt"
	"strings"
	"time"

	"chat-core/internal/models"
)

const messageColumns = `id, sender_id, receiver_id, room_id, body, kind,
	attachment_url, attachment_name, attachment_size,
	is_read, edited, deleted, version, created_at, updated_at`

// dialect covers the differences between the two SQL backends.
type dialect struct {
	placeholder func(n int) string
	timeArg     func(t time.Time) interface{}
}

var postgresDialect = dialect{
	placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	timeArg:     func(t time.Time) interface{} { return t.UTC() },
}

// SQLite keeps times as unix nanoseconds so comparisons stay numeric.
var sqliteDialect = dialect{
	placeholder: func(int) string { return "?" },
	timeArg:     func(t time.Time) interface{} { return t.UTC().UnixNano() },
}

type query struct {
	d    dialect
	args []interface{}
}

func (q *query) arg(v interface{}) string {
	q.args = append(q.args, v)
	return q.d.placeholder(len(q.args))
}

func (q *query) where(f models.MessageFilter) string {
	var conds []string
	if len(f.IDs) > 0 {
		ph := make([]string, len(f.IDs))
		for i, id := range f.IDs {
			ph[i] = q.arg(id)
		}
		conds = append(conds, "id IN ("+strings.Join(ph, ", ")+")")
	}
	if f.SenderID != "" {
		conds = append(conds, "sender_id = "+q.arg(f.SenderID))
	}
	if f.ReceiverID != "" {
		conds = append(conds, "receiver_id = "+q.arg(f.ReceiverID))
	}
	if f.RoomID != "" {
		conds = append(conds, "room_id = "+q.arg(f.RoomID))
	}
	if a, b := f.Conversation[0], f.Conversation[1]; a != "" && b != "" {
		conds = append(conds, fmt.Sprintf("((sender_id = %s AND receiver_id = %s) OR (sender_id = %s AND receiver_id = %s))",
			q.arg(a), q.arg(b), q.arg(b), q.arg(a)))
	}
	if f.OnlyUnread {
		conds = append(conds, "is_read = "+q.arg(false))
	}
	if !f.IncludeDeleted {
		conds = append(conds, "deleted = "+q.arg(false))
	}
	if !f.Before.IsZero() {
		conds = append(conds, "created_at < "+q.arg(q.d.timeArg(f.Before)))
	}
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// set renders the SET list. Content changes bump the version; the read flag
// is independent of the edit/delete state and leaves it alone.
func (q *query) set(p models.MessagePatch, now time.Time) string {
	var sets []string
	bump := false
	if p.Body != nil {
		sets = append(sets, "body = "+q.arg(*p.Body))
		bump = true
	}
	if p.Edited != nil {
		sets = append(sets, "edited = "+q.arg(*p.Edited))
		bump = true
	}
	if p.Deleted != nil {
		sets = append(sets, "deleted = "+q.arg(*p.Deleted))
		bump = true
	}
	if p.Read != nil {
		sets = append(sets, "is_read = "+q.arg(*p.Read))
	}
	if bump {
		sets = append(sets, "version = version + 1")
	}
	sets = append(sets, "updated_at = "+q.arg(q.d.timeArg(now)))
	return strings.Join(sets, ", ")
}

func buildInsert(d dialect, m *models.Message) (string, []interface{}) {
	q := &query{d: d}
	var url, name string
	var size int64
	if m.Attachment != nil {
		url, name, size = m.Attachment.URL, m.Attachment.Name, m.Attachment.Size
	}
	values := []string{
		q.arg(m.ID), q.arg(m.SenderID), q.arg(m.ReceiverID), q.arg(m.RoomID),
		q.arg(m.Body), q.arg(string(m.Kind)),
		q.arg(url), q.arg(name), q.arg(size),
		q.arg(m.Read), q.arg(m.Edited), q.arg(m.Deleted), q.arg(m.Version),
		q.arg(d.timeArg(m.CreatedAt)), q.arg(d.timeArg(m.UpdatedAt)),
	}
	sql := "INSERT INTO chat_messages (" + messageColumns + ") VALUES (" + strings.Join(values, ", ") + ")"
	return sql, q.args
}

func buildUpdateOne(d dialect, id string, p models.MessagePatch, now time.Time) (string, []interface{}) {
	q := &query{d: d}
	sql := "UPDATE chat_messages SET " + q.set(p, now) + " WHERE id = " + q.arg(id)
	if p.ExpectVersion > 0 {
		sql += " AND version = " + q.arg(p.ExpectVersion)
	}
	return sql, q.args
}

func buildUpdateMany(d dialect, f models.MessageFilter, p models.MessagePatch, now time.Time) (string, []interface{}) {
	q := &query{d: d}
	sql := "UPDATE chat_messages SET " + q.set(p, now) + q.where(f) + " RETURNING id, sender_id, room_id"
	return sql, q.args
}

func buildList(d dialect, f models.MessageFilter) (string, []interface{}) {
	q := &query{d: d}
	sql := "SELECT " + messageColumns + " FROM chat_messages" + q.where(f) + " ORDER BY created_at DESC, id DESC"
	if f.Limit > 0 {
		sql += " LIMIT " + q.arg(f.Limit)
	}
	return sql, q.args
}

func buildCount(d dialect, f models.MessageFilter) (string, []interface{}) {
	q := &query{d: d}
	return "SELECT COUNT(*) FROM chat_messages" + q.where(f), q.args
}

func buildFind(d dialect, id string) (string, []interface{}) {
	q := &query{d: d}
	return "SELECT " + messageColumns + " FROM chat_messages WHERE id = " + q.arg(id), q.args
}

// rowScanner is satisfied by pgx.Row(s) and *sql.Row(s).
type rowScanner interface {
	Scan(dest ...interface{}) error
}

type rawMessage struct {
	msg       models.Message
	kind      string
	url, name string
	size      int64
}

func (r *rawMessage) dest(created, updated interface{}) []interface{} {
	m := &r.msg
	return []interface{}{
		&m.ID, &m.SenderID, &m.ReceiverID, &m.RoomID, &m.Body, &r.kind,
		&r.url, &r.name, &r.size,
		&m.Read, &m.Edited, &m.Deleted, &m.Version, created, updated,
	}
}

func (r *rawMessage) finish() models.Message {
	m := r.msg
	m.Kind = models.Kind(r.kind)
	if r.url != "" || r.name != "" || r.size != 0 {
		m.Attachment = &models.Attachment{URL: r.url, Name: r.name, Size: r.size}
	}
	return m
}
