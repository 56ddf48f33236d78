package migrations

func init() {
	Register(Migration{
		Timestamp:   "20260701-000000",
		Description: "initial product-tracking schema",
		Up: []string{
			`CREATE TABLE IF NOT EXISTS products (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				description TEXT,
				kind TEXT NOT NULL,
				notify_policy TEXT NOT NULL,
				threshold_kind TEXT,
				threshold_value REAL,
				cron TEXT NOT NULL,
				is_active INTEGER NOT NULL DEFAULT 1,
				is_paused INTEGER NOT NULL DEFAULT 0,
				best_source_id TEXT,
				best_value TEXT,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				last_checked TEXT,
				next_check TEXT
			)`,
			`CREATE TABLE IF NOT EXISTS sources (
				id TEXT PRIMARY KEY,
				product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
				url TEXT NOT NULL,
				store_name TEXT,
				title TEXT,
				selector TEXT,
				selector_type TEXT NOT NULL,
				original_text TEXT,
				original_value TEXT,
				current_text TEXT,
				current_value TEXT,
				is_active INTEGER NOT NULL DEFAULT 1,
				last_checked TEXT,
				error_count INTEGER NOT NULL DEFAULT 0,
				last_error TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_sources_product_id ON sources(product_id)`,
			`CREATE TABLE IF NOT EXISTS price_history (
				id TEXT PRIMARY KEY,
				source_id TEXT NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
				value TEXT NOT NULL,
				text TEXT NOT NULL,
				timestamp TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_price_history_source_id ON price_history(source_id, timestamp)`,
			`CREATE TABLE IF NOT EXISTS price_comparisons (
				id TEXT PRIMARY KEY,
				product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
				sources_json TEXT NOT NULL,
				best_source_id TEXT NOT NULL,
				best_value TEXT NOT NULL,
				worst_value TEXT,
				avg_value TEXT,
				timestamp TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_price_comparisons_product_id ON price_comparisons(product_id, timestamp)`,
			`CREATE TABLE IF NOT EXISTS notification_logs (
				id TEXT PRIMARY KEY,
				product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
				notifier_kind TEXT NOT NULL,
				status TEXT NOT NULL,
				action TEXT,
				error TEXT,
				timestamp TEXT NOT NULL,
				actioned_at TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_notification_logs_product_id ON notification_logs(product_id, timestamp)`,
			`CREATE TABLE IF NOT EXISTS false_positives (
				id TEXT PRIMARY KEY,
				source_id TEXT NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
				detected_text TEXT NOT NULL,
				detected_value TEXT,
				actual_text TEXT,
				html_context TEXT NOT NULL,
				screenshot_ref TEXT,
				notes TEXT,
				timestamp TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_false_positives_source_id ON false_positives(source_id)`,
			`CREATE TABLE IF NOT EXISTS jobs (
				job_id TEXT PRIMARY KEY,
				product_id TEXT NOT NULL UNIQUE REFERENCES products(id) ON DELETE CASCADE,
				cron TEXT NOT NULL,
				status TEXT NOT NULL,
				created_at TEXT NOT NULL,
				last_run TEXT,
				next_run TEXT,
				run_count INTEGER NOT NULL DEFAULT 0,
				success_count INTEGER NOT NULL DEFAULT 0,
				error_count INTEGER NOT NULL DEFAULT 0,
				last_error TEXT
			)`,
			`CREATE TABLE IF NOT EXISTS system_settings (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL
			)`,
		},
	})
}
