package export

const schema = `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    thumbnail_url TEXT,
    description TEXT,
    time TEXT,
    start_date TEXT,
    end_date TEXT,
    day TEXT,                     -- YYYY-MM-DD prefix of start_date, empty when unknown
    location TEXT,
    url TEXT,
    price TEXT,                   -- NULL when the page published no price
    status TEXT,
    exported_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_events_day ON events(day);
CREATE INDEX IF NOT EXISTS idx_events_status ON events(status);

CREATE TABLE IF NOT EXISTS event_tags (
    event_id INTEGER NOT NULL,
    position INTEGER NOT NULL,
    tag TEXT NOT NULL,
    PRIMARY KEY (event_id, position),
    FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_event_tags_tag ON event_tags(tag);

CREATE TABLE IF NOT EXISTS event_sponsors (
    event_id INTEGER NOT NULL,
    position INTEGER NOT NULL,
    sponsor TEXT NOT NULL,
    PRIMARY KEY (event_id, position),
    FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE
);
`
