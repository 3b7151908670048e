package repositories

import (
	"github.com/Masterminds/squirrel"
)

// psql builds queries with $n placeholders
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
