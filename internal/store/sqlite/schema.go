package sqlite

// schema is applied on every open. Statements are idempotent so an existing
// database is left untouched.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	display_name  TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS courses (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL UNIQUE,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS enrollments (
	user_id     INTEGER NOT NULL,
	course_id   INTEGER NOT NULL,
	enrolled_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (user_id, course_id),
	FOREIGN KEY (user_id) REFERENCES users(id),
	FOREIGN KEY (course_id) REFERENCES courses(id)
);

CREATE TABLE IF NOT EXISTS chat_aliases (
	user_id      INTEGER NOT NULL,
	course_id    INTEGER NOT NULL,
	display_name TEXT NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (user_id, course_id),
	UNIQUE (course_id, display_name),
	FOREIGN KEY (user_id) REFERENCES users(id),
	FOREIGN KEY (course_id) REFERENCES courses(id)
);

CREATE TABLE IF NOT EXISTS chat_messages (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	course_id      INTEGER NOT NULL,
	sender_user_id INTEGER NOT NULL,
	anonymous_name TEXT NOT NULL,
	content        TEXT NOT NULL,
	sent_at        DATETIME NOT NULL,
	FOREIGN KEY (course_id) REFERENCES courses(id),
	FOREIGN KEY (sender_user_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS private_messages (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	sender_id    INTEGER NOT NULL,
	recipient_id INTEGER NOT NULL,
	content      TEXT NOT NULL,
	sent_at      DATETIME NOT NULL,
	edited_at    DATETIME,
	is_read      BOOLEAN NOT NULL DEFAULT 0,
	deleted_at   DATETIME,
	FOREIGN KEY (sender_id) REFERENCES users(id),
	FOREIGN KEY (recipient_id) REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_chat_messages_course ON chat_messages(course_id, sent_at);
CREATE INDEX IF NOT EXISTS idx_private_messages_pair ON private_messages(sender_id, recipient_id, sent_at);
CREATE INDEX IF NOT EXISTS idx_enrollments_course ON enrollments(course_id);
`
