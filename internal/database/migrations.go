package database

type migration struct {
	id   int
	name string
	sql  string
}

var migrations = []migration{
	{
		id:   1,
		name: "initial_schema",
		sql: `
			-- Players: connection tokens, bound to nations through their id
			CREATE TABLE players (
				id TEXT PRIMARY KEY,
				token TEXT UNIQUE NOT NULL,
				name TEXT NOT NULL,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				last_seen_at DATETIME DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX idx_players_token ON players(token);

			-- Rulesets: YAML source, immutable per game
			CREATE TABLE rulesets (
				name TEXT PRIMARY KEY,
				source TEXT NOT NULL,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP
			);

			-- Worlds: compressed JSON territory graphs
			CREATE TABLE worlds (
				name TEXT PRIMARY KEY,
				territories INTEGER NOT NULL,
				data BLOB NOT NULL,
				checksum TEXT NOT NULL,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP
			);

			-- Savegames: compressed JSON game state
			CREATE TABLE savegames (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				ruleset TEXT NOT NULL,
				world TEXT NOT NULL,
				turn INTEGER NOT NULL DEFAULT 0,
				month INTEGER NOT NULL,
				year INTEGER NOT NULL,
				data BLOB NOT NULL,
				checksum TEXT NOT NULL,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				FOREIGN KEY (ruleset) REFERENCES rulesets(name),
				FOREIGN KEY (world) REFERENCES worlds(name)
			);

			-- Servers: maps an owning server to its game
			CREATE TABLE servers (
				server_id TEXT PRIMARY KEY,
				game_id TEXT NOT NULL,
				bound_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				FOREIGN KEY (game_id) REFERENCES savegames(id) ON DELETE CASCADE
			);
			CREATE INDEX idx_servers_game ON servers(game_id);
		`,
	},
	{
		id:   2,
		name: "add_history",
		sql: `
			-- History: audit log of turns and administrative actions
			CREATE TABLE history (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				game_id TEXT NOT NULL,
				turn INTEGER NOT NULL,
				month INTEGER NOT NULL,
				year INTEGER NOT NULL,
				nation TEXT NOT NULL DEFAULT '',
				event_type TEXT NOT NULL,
				message TEXT NOT NULL,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				FOREIGN KEY (game_id) REFERENCES savegames(id) ON DELETE CASCADE
			);
			CREATE INDEX idx_history_game ON history(game_id);
		`,
	},
}
