package postgres

// Embedded schema migrations for the progression engine. Each migration is
// applied in its own transaction and recorded in schema_migrations.

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_progression_states",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_streak_records",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "create_skill_profiles",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
		{
			Version: 4,
			Name:    "create_processed_events",
			UpSQL:   migration004Up,
			DownSQL: migration004Down,
		},
	}
}

const migration001Up = `
CREATE TABLE IF NOT EXISTS progression_states (
	user_id                   TEXT PRIMARY KEY,
	organization_id           TEXT NOT NULL DEFAULT '',
	total_xp                  INTEGER NOT NULL DEFAULT 0 CHECK (total_xp >= 0),
	level                     INTEGER NOT NULL DEFAULT 1 CHECK (level >= 1),
	level_title               TEXT NOT NULL DEFAULT 'Newcomer',
	level_tier                TEXT NOT NULL DEFAULT 'newcomer',
	xp_in_current_level       INTEGER NOT NULL DEFAULT 0,
	xp_to_next_level          INTEGER NOT NULL DEFAULT 0,
	current_streak            INTEGER NOT NULL DEFAULT 0,
	longest_streak            INTEGER NOT NULL DEFAULT 0,
	completed_today           BOOLEAN NOT NULL DEFAULT FALSE,
	streak_at_risk            BOOLEAN NOT NULL DEFAULT FALSE,
	streak_days               JSONB NOT NULL DEFAULT '[false,false,false,false,false,false,false]',
	total_campaigns_completed INTEGER NOT NULL DEFAULT 0,
	badges                    JSONB NOT NULL DEFAULT '[]',
	badge_details             JSONB NOT NULL DEFAULT '[]',
	version                   BIGINT NOT NULL DEFAULT 0,
	created_at                TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	updated_at                TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_progression_states_org
	ON progression_states (organization_id);
`

const migration001Down = `
DROP TABLE IF EXISTS progression_states;
`

const migration002Up = `
CREATE TABLE IF NOT EXISTS streak_records (
	id                     TEXT PRIMARY KEY,
	user_id                TEXT NOT NULL,
	start_date             DATE NOT NULL,
	end_date               DATE,
	length                 INTEGER NOT NULL DEFAULT 1 CHECK (length >= 1),
	status                 TEXT NOT NULL CHECK (status IN ('active', 'broken')),
	active_dates           JSONB NOT NULL DEFAULT '[]',
	completed_campaign_ids JSONB NOT NULL DEFAULT '[]',
	longest_in_history     BOOLEAN NOT NULL DEFAULT FALSE,
	created_at             TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	updated_at             TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

-- At most one active streak per user.
CREATE UNIQUE INDEX IF NOT EXISTS uniq_streak_records_active
	ON streak_records (user_id) WHERE status = 'active';

CREATE INDEX IF NOT EXISTS idx_streak_records_user
	ON streak_records (user_id, created_at DESC);
`

const migration002Down = `
DROP TABLE IF EXISTS streak_records;
`

const migration003Up = `
CREATE TABLE IF NOT EXISTS skill_profiles (
	user_id                     TEXT NOT NULL,
	skill_id                    TEXT NOT NULL,
	competency_id               TEXT NOT NULL,
	current_score               INTEGER NOT NULL DEFAULT 0 CHECK (current_score BETWEEN 0 AND 100),
	average_score               DOUBLE PRECISION NOT NULL DEFAULT 0,
	assessment_count            INTEGER NOT NULL DEFAULT 0,
	level                       INTEGER NOT NULL DEFAULT 1 CHECK (level BETWEEN 1 AND 5),
	consecutive_above_threshold INTEGER NOT NULL DEFAULT 0,
	history                     JSONB NOT NULL DEFAULT '[]',
	created_at                  TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	updated_at                  TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	PRIMARY KEY (user_id, skill_id)
);

CREATE INDEX IF NOT EXISTS idx_skill_profiles_competency
	ON skill_profiles (user_id, competency_id);

CREATE TABLE IF NOT EXISTS scored_videos (
	user_id   TEXT NOT NULL,
	video_id  TEXT NOT NULL,
	scored_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	PRIMARY KEY (user_id, video_id)
);
`

const migration003Down = `
DROP TABLE IF EXISTS scored_videos;
DROP TABLE IF EXISTS skill_profiles;
`

const migration004Up = `
CREATE TABLE IF NOT EXISTS processed_events (
	user_id      TEXT NOT NULL,
	event_id     TEXT NOT NULL,
	processed_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	PRIMARY KEY (user_id, event_id)
);
`

const migration004Down = `
DROP TABLE IF EXISTS processed_events;
`
