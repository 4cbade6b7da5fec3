package postgres

const TABLE_EXISTS_QUERY = "SELECT EXISTS(SELECT 1 FROM information_schema.tables WHERE table_schema = $1 AND table_name = $2)"

const COLUMN_NAMES_QUERY = "SELECT column_name FROM information_schema.columns WHERE table_schema = $1 AND table_name = $2"

const HEALTH_CHECK_QUERY = "SELECT 1"
