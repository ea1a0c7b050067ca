package db

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL DEFAULT '',
		first_name TEXT,
		last_name TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS photos (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		filename TEXT NOT NULL,
		url TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS chat_messages (
		id TEXT PRIMARY KEY,
		sender_id TEXT NOT NULL,
		receiver_id TEXT NOT NULL DEFAULT '',
		room_id TEXT NOT NULL DEFAULT '',
		body TEXT NOT NULL,
		kind TEXT NOT NULL DEFAULT 'text',
		attachment_url TEXT NOT NULL DEFAULT '',
		attachment_name TEXT NOT NULL DEFAULT '',
		attachment_size BIGINT NOT NULL DEFAULT 0 CHECK (attachment_size >= 0),
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		edited BOOLEAN NOT NULL DEFAULT FALSE,
		deleted BOOLEAN NOT NULL DEFAULT FALSE,
		version BIGINT NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		CHECK ((receiver_id = '') <> (room_id = ''))
	)`,
	`CREATE INDEX IF NOT EXISTS chat_messages_room_idx ON chat_messages (room_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS chat_messages_receiver_idx ON chat_messages (receiver_id, is_read)`,
	`CREATE INDEX IF NOT EXISTS chat_messages_sender_idx ON chat_messages (sender_id, created_at DESC)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		avatar_url TEXT NOT NULL DEFAULT ''
	);`,
	`CREATE TABLE IF NOT EXISTS chat_messages (
		id TEXT PRIMARY KEY,
		sender_id TEXT NOT NULL,
		receiver_id TEXT NOT NULL DEFAULT '',
		room_id TEXT NOT NULL DEFAULT '',
		body TEXT NOT NULL,
		kind TEXT NOT NULL DEFAULT 'text',
		attachment_url TEXT NOT NULL DEFAULT '',
		attachment_name TEXT NOT NULL DEFAULT '',
		attachment_size INTEGER NOT NULL DEFAULT 0 CHECK (attachment_size >= 0),
		is_read INTEGER NOT NULL DEFAULT 0,
		edited INTEGER NOT NULL DEFAULT 0,
		deleted INTEGER NOT NULL DEFAULT 0,
		version INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		CHECK ((receiver_id = '') <> (room_id = ''))
	);`,
	`CREATE INDEX IF NOT EXISTS chat_messages_room_idx ON chat_messages (room_id, created_at);`,
	`CREATE INDEX IF NOT EXISTS chat_messages_receiver_idx ON chat_messages (receiver_id, is_read);`,
}
