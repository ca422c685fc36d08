package clause

type JoinType string

const (
	InnerJoin JoinType = "INNER"
	LeftJoin  JoinType = "LEFT"
	// PlainJoin a bare JOIN, left to the database to interpret
	PlainJoin JoinType = ""
)

// Join join clause for from
type Join struct {
	Type  JoinType
	Table Table
	ON    Where
}

func (join Join) Build(builder Builder) {
	if join.Type != "" {
		builder.WriteString(string(join.Type))
		builder.WriteByte(' ')
	}

	builder.WriteString("JOIN ")
	builder.WriteQuoted(join.Table)

	if len(join.ON.Exprs) > 0 {
		builder.WriteString(" ON ")
		join.ON.Build(builder)
	}
}
