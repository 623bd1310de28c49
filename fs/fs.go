package appfs

import "embed"

// FS holds the SQL migrations and email templates shipped inside the binaries.
//
//go:embed migrations/*.sql assets/templates/email/*
var FS embed.FS
