// Package sitecheck embeds the database migrations so the binary can migrate
// without shipping SQL files alongside it.
package sitecheck

import "embed"

//go:embed migrations/*.sql
var Migrations embed.FS
