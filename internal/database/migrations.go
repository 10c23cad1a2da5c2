package database

// Catalogue names are unique per owner only by convention: name_folded is
// indexed but deliberately not a unique key.
const schema = `
CREATE TABLE IF NOT EXISTS catalogues (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    owner_id INTEGER NOT NULL,
    name TEXT NOT NULL,
    name_folded TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS images (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    catalogue_id INTEGER NOT NULL REFERENCES catalogues (id),
    url TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    date_created TEXT NOT NULL,
    date_modified TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_catalogues_owner_name ON catalogues (owner_id, name_folded);
CREATE INDEX IF NOT EXISTS idx_images_catalogue ON images (catalogue_id);
`
