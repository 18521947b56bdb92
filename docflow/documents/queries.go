package documents

const schemaDDL = `
CREATE TABLE IF NOT EXISTS documents (
	id BIGSERIAL PRIMARY KEY,
	owner_id BIGINT NOT NULL,
	parent_id BIGINT REFERENCES documents(id) ON DELETE CASCADE,
	content JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS documents_parent_idx ON documents (parent_id);

CREATE TABLE IF NOT EXISTS document_access_rights (
	document_id BIGINT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	user_id BIGINT NOT NULL,
	include_children BOOLEAN NOT NULL DEFAULT FALSE,
	PRIMARY KEY (document_id, user_id)
);

CREATE TABLE IF NOT EXISTS document_history (
	id BIGSERIAL PRIMARY KEY,
	document_id BIGINT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	user_id BIGINT NOT NULL,
	action_type TEXT NOT NULL CHECK (action_type IN ('create', 'edit', 'title_change')),
	changes JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS document_history_lookup_idx
	ON document_history (document_id, user_id, action_type, created_at DESC);
`

const (
	queryCreateDocument = `
		INSERT INTO documents (owner_id, parent_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, owner_id, parent_id, content, created_at, updated_at
	`

	queryGetDocument = `
		SELECT id, owner_id, parent_id, content, created_at, updated_at
		FROM documents
		WHERE id = $1
	`

	querySaveContent = `
		UPDATE documents
		SET content = $2, updated_at = NOW()
		WHERE id = $1
	`

	queryAppendHistory = `
		INSERT INTO document_history (document_id, user_id, action_type, changes, created_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, NOW()))
		RETURNING id, created_at
	`

	queryLastHistoryAt = `
		SELECT created_at
		FROM document_history
		WHERE document_id = $1 AND user_id = $2 AND action_type = $3
		ORDER BY created_at DESC
		LIMIT 1
	`

	queryListHistory = `
		SELECT id, document_id, user_id, action_type, changes, created_at
		FROM document_history
		WHERE document_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	queryGrantAccess = `
		INSERT INTO document_access_rights (document_id, user_id, include_children)
		VALUES ($1, $2, $3)
		ON CONFLICT (document_id, user_id) DO UPDATE SET include_children = EXCLUDED.include_children
	`

	// owner of the document, a direct grant, or a grant on an ancestor that includes children
	queryUserHasAccess = `
		WITH RECURSIVE ancestors AS (
			SELECT id, parent_id, owner_id, 0 AS depth
			FROM documents
			WHERE id = $2
			UNION ALL
			SELECT d.id, d.parent_id, d.owner_id, a.depth + 1
			FROM documents d
			JOIN ancestors a ON d.id = a.parent_id
			WHERE a.depth < 64
		)
		SELECT EXISTS (
			SELECT 1 FROM ancestors WHERE depth = 0 AND owner_id = $1
		) OR EXISTS (
			SELECT 1
			FROM ancestors a
			JOIN document_access_rights r ON r.document_id = a.id
			WHERE r.user_id = $1 AND (a.depth = 0 OR r.include_children)
		)
	`
)
