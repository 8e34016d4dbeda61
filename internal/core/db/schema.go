package db

func (db *DB) initSchema() error {
	schema := `
	-- Conversations table
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		game_id TEXT NOT NULL,
		game_name TEXT NOT NULL,
		title TEXT NOT NULL,
		last_message TEXT,
		last_message_at DATETIME,
		message_count INTEGER DEFAULT 0,
		created_at DATETIME,
		is_active BOOLEAN DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_conversations_game_id ON conversations(game_id);
	CREATE INDEX IF NOT EXISTS idx_conversations_last_message_at ON conversations(last_message_at);

	-- Messages table. conversation_id is NULL for the unscoped buffer
	-- (chatting without a named conversation).
	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		conversation_id TEXT REFERENCES conversations(id) ON DELETE CASCADE,
		game_id TEXT,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		timestamp DATETIME,
		sequence INTEGER,
		sources TEXT,
		structured TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_messages_conversation_id ON messages(conversation_id);
	CREATE INDEX IF NOT EXISTS idx_messages_game_id ON messages(game_id);
	CREATE INDEX IF NOT EXISTS idx_messages_sequence ON messages(sequence);

	-- Cached game catalog, replaced wholesale on each successful fetch
	CREATE TABLE IF NOT EXISTS games (
		game_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		complexity TEXT,
		min_players INTEGER,
		max_players INTEGER,
		rule_count INTEGER,
		categories TEXT,
		ai_tags TEXT,
		created_at DATETIME,
		fetched_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Small key/value state (selected game, current game)
	CREATE TABLE IF NOT EXISTS app_state (
		key TEXT PRIMARY KEY,
		value TEXT
	);

	-- FTS5 table for full-text search over chat history
	CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
		content,
		content=messages,
		content_rowid=rowid,
		tokenize='porter unicode61'
	);

	-- Triggers to keep FTS in sync
	CREATE TRIGGER IF NOT EXISTS messages_ai AFTER INSERT ON messages BEGIN
		INSERT INTO messages_fts(rowid, content) VALUES (new.rowid, new.content);
	END;

	CREATE TRIGGER IF NOT EXISTS messages_ad AFTER DELETE ON messages BEGIN
		INSERT INTO messages_fts(messages_fts, rowid, content) VALUES ('delete', old.rowid, old.content);
	END;
	`

	_, err := db.conn.Exec(schema)
	return err
}
