// ABOUTME: SQLite schema for CRM snapshot exports
// ABOUTME: One table per collection plus a log of export runs
package db

import (
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS exports (
	id TEXT PRIMARY KEY,
	taken_at DATETIME NOT NULL,
	leads INTEGER NOT NULL,
	deals INTEGER NOT NULL,
	activities INTEGER NOT NULL,
	conversations INTEGER NOT NULL,
	messages INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS leads (
	id INTEGER PRIMARY KEY,
	first_name TEXT NOT NULL,
	last_name TEXT NOT NULL,
	email TEXT NOT NULL,
	phone TEXT,
	company TEXT,
	product_name TEXT,
	rri TEXT,
	status TEXT NOT NULL CHECK(status IN ('new', 'qualified', 'contacted', 'lost')),
	source TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	last_contact DATETIME,
	conversation_id TEXT,
	bot_generated BOOLEAN NOT NULL DEFAULT 0,
	chat_summary TEXT
);

CREATE INDEX IF NOT EXISTS idx_leads_email ON leads(email);
CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);

CREATE TABLE IF NOT EXISTS deals (
	id INTEGER PRIMARY KEY,
	lead_id INTEGER,
	title TEXT NOT NULL,
	value REAL NOT NULL,
	stage TEXT NOT NULL CHECK(stage IN ('prospecting', 'proposal', 'negotiation', 'closed-won', 'closed-lost')),
	probability INTEGER NOT NULL,
	expected_close DATETIME,
	created_at DATETIME NOT NULL,
	assignee_id INTEGER,
	assignee_name TEXT
);

CREATE INDEX IF NOT EXISTS idx_deals_stage ON deals(stage);
CREATE INDEX IF NOT EXISTS idx_deals_lead_id ON deals(lead_id);

CREATE TABLE IF NOT EXISTS activities (
	id INTEGER PRIMARY KEY,
	lead_id INTEGER,
	deal_id INTEGER,
	type TEXT NOT NULL CHECK(type IN ('call', 'email', 'meeting', 'task', 'note', 'bot-interaction')),
	subject TEXT NOT NULL,
	notes TEXT,
	description TEXT,
	due_date DATETIME,
	completed BOOLEAN NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	conversation_id TEXT,
	bot_generated BOOLEAN NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_activities_lead_id ON activities(lead_id);
CREATE INDEX IF NOT EXISTS idx_activities_due_date ON activities(due_date);

CREATE TABLE IF NOT EXISTS conversations (
	id INTEGER PRIMARY KEY,
	conversation_id TEXT NOT NULL UNIQUE,
	start_time DATETIME NOT NULL,
	end_time DATETIME,
	status TEXT NOT NULL CHECK(status IN ('active', 'completed')),
	lead_created BOOLEAN NOT NULL DEFAULT 0,
	lead_id INTEGER
);

CREATE TABLE IF NOT EXISTS messages (
	id INTEGER PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	message TEXT NOT NULL,
	timestamp DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, timestamp);
`

// snapshotTables are cleared before each export, children first.
var snapshotTables = []string{"messages", "conversations", "activities", "deals", "leads"}

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
