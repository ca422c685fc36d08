package tests

import (
	"gorm.io/relations/schema"
)

// Models entity types used across tests
//
//	User            has a creator (User), belongs to groups through GroupMembership
//	Message         references User twice, as sender and receiver
//	Friendship      references User twice, a self referencing junction
//	Image           references ImageCategory, declared before it (deferred)
//	ImageCategory   references its cover Image
//	Tag             references nothing and is referenced by nothing
type Models struct {
	User            *schema.Schema
	Group           *schema.Schema
	GroupMembership *schema.Schema
	Message         *schema.Schema
	Friendship      *schema.Schema
	Image           *schema.Schema
	ImageCategory   *schema.Schema
	Tag             *schema.Schema
}

// NewModels declares the test entity types, namer may be nil
func NewModels(namer schema.Namer) *Models {
	m := &Models{}

	m.User = schema.MustNew("User", namer,
		&schema.Field{Name: "ID", DataType: schema.Int, PrimaryKey: true},
		&schema.Field{Name: "Name", DataType: schema.String},
		&schema.Field{Name: "Email", DataType: schema.String, Unique: true},
		&schema.Field{Name: "CreatedAt", DataType: schema.Time},
	)
	must(m.User.AddField(&schema.Field{
		Name: "CreatorID", DataType: schema.Int, References: schema.Refs(m.User.FieldsByName["ID"]),
	}))

	m.Group = schema.MustNew("Group", namer,
		&schema.Field{Name: "ID", DataType: schema.Int, PrimaryKey: true},
		&schema.Field{Name: "Name", DataType: schema.String},
	)

	m.GroupMembership = schema.MustNew("GroupMembership", namer,
		&schema.Field{Name: "ID", DataType: schema.Int, PrimaryKey: true},
		&schema.Field{Name: "UserID", DataType: schema.Int, References: schema.Refs(m.User.FieldsByName["ID"])},
		&schema.Field{Name: "GroupID", DataType: schema.Int, References: schema.Refs(m.Group.FieldsByName["ID"])},
	)

	m.Message = schema.MustNew("Message", namer,
		&schema.Field{Name: "ID", DataType: schema.Int, PrimaryKey: true},
		&schema.Field{Name: "Text", DataType: schema.String},
		&schema.Field{Name: "SenderID", DataType: schema.Int, References: schema.Refs(m.User.FieldsByName["ID"])},
		&schema.Field{Name: "ReceiverID", DataType: schema.Int, References: schema.Refs(m.User.FieldsByName["ID"])},
	)

	m.Friendship = schema.MustNew("Friendship", namer,
		&schema.Field{Name: "ID", DataType: schema.Int, PrimaryKey: true},
		&schema.Field{Name: "UserID", DataType: schema.Int, References: schema.Refs(m.User.FieldsByName["ID"])},
		&schema.Field{Name: "FriendID", DataType: schema.Int, References: schema.Refs(m.User.FieldsByName["ID"])},
	)

	m.Image = schema.MustNew("Image", namer,
		&schema.Field{Name: "ID", DataType: schema.Int, PrimaryKey: true},
		&schema.Field{Name: "URL", DataType: schema.String},
		&schema.Field{Name: "CategoryID", DataType: schema.Int, References: schema.Lazy(func() []*schema.Field {
			return []*schema.Field{m.ImageCategory.FieldsByName["ID"]}
		})},
	)

	m.ImageCategory = schema.MustNew("ImageCategory", namer,
		&schema.Field{Name: "ID", DataType: schema.Int, PrimaryKey: true},
		&schema.Field{Name: "Name", DataType: schema.String},
		&schema.Field{Name: "CoverID", DataType: schema.Int, References: schema.Refs(m.Image.FieldsByName["ID"])},
	)

	m.Tag = schema.MustNew("Tag", namer,
		&schema.Field{Name: "ID", DataType: schema.Int, PrimaryKey: true},
		&schema.Field{Name: "Name", DataType: schema.String},
	)

	return m
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
