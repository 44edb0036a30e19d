package db

import _ "embed"

//go:embed schema.sql
var Schema string

type Kind string

const (
	KindVibrations Kind = "vibrations"
	KindReferences Kind = "references"
)
