package schemafile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quarrydb/quarry/internal/qerr"
	"github.com/quarrydb/quarry/pkg/dialect"
	"github.com/quarrydb/quarry/pkg/primitive"
	"github.com/quarrydb/quarry/pkg/schema"
)

func writeSchema(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadDirSingleEntity(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "auth.yaml", `
namespace: auth
entities:
  - name: user
    autokey: id
    fields:
      - name: email
        type: string
      - name: nickname
        type: string
        nullable: true
      - name: active
        type: bool
        default: "true"
    uniques:
      - name: uq_auth_user_email
        fields: [email]
`)

	entities, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, entities, 1)

	e := entities[0]
	require.Equal(t, "auth.user", e.QualifiedName())
	require.False(t, e.IsSum())

	c := e.Ctors[0]
	require.Equal(t, "id", c.Autokey)
	require.Len(t, c.Fields, 3)

	_, nick := c.FieldNamed("nickname")
	require.True(t, nick.Type.(*schema.PrimitiveType).Nullable)
	_, active := c.FieldNamed("active")
	require.Equal(t, "true", active.Type.(*schema.PrimitiveType).Default)

	require.Len(t, c.Uniques, 1)
	require.Equal(t, schema.UniqueConstraint, c.Uniques[0].Kind)
	require.Equal(t, "email", c.Uniques[0].Members[0].Field)
}

func TestLoadDirSumEntity(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "geo.yaml", `
namespace: geo
entities:
  - name: shape
    constructors:
      - name: circle
        autokey: id
        fields:
          - name: radius
            type: double
      - name: rect
        autokey: id
        fields:
          - name: width
            type: double
          - name: height
            type: double
`)

	entities, err := LoadDir(dir)
	require.NoError(t, err)
	require.True(t, entities[0].IsSum())
	require.Equal(t, 1, entities[0].Discriminant("rect"))
}

func TestLoadDirResolvesCrossFileReferences(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "auth.yaml", `
namespace: auth
entities:
  - name: user
    autokey: id
    fields:
      - name: email
        type: string
`)
	writeSchema(t, dir, "blog.yaml", `
namespace: blog
entities:
  - name: post
    autokey: id
    fields:
      - name: author_id
        type: int
        references:
          entity: auth.user
          on_delete: cascade
      - name: title
        type: string
`)

	entities, err := LoadDir(dir)
	require.NoError(t, err)

	var post *schema.Entity
	for _, e := range entities {
		if e.Name == "post" {
			post = e
		}
	}
	require.NotNil(t, post)

	_, author := post.Ctors[0].FieldNamed("author_id")
	ref := author.Type.(*schema.PrimitiveType).Parent
	require.NotNil(t, ref)
	require.Equal(t, "auth.user", ref.Entity.QualifiedName())
	require.Equal(t, schema.Cascade, ref.OnDelete)

	// Flatten proves the reference produced a usable foreign key.
	rel, err := schema.Flatten(post, dialect.Get("postgres"))
	require.NoError(t, err)
	require.Len(t, rel.ForeignKeys, 1)
	require.Equal(t, "auth_user", rel.ForeignKeys[0].RefTable)
}

func TestLoadDirListAndEmbedded(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "crm.yaml", `
namespace: crm
entities:
  - name: contact
    autokey: id
    fields:
      - name: address
        type: embedded
        fields:
          - name: city
            type: string
          - name: zip
            type: string
      - name: tags
        type: list
        elem:
          type: string
`)

	entities, err := LoadDir(dir)
	require.NoError(t, err)

	rel, err := schema.Flatten(entities[0], dialect.Get("sqlite"))
	require.NoError(t, err)
	require.NotNil(t, rel.Column("address_city"))
	require.Len(t, rel.Lists, 1)
}

func TestLoadDirNormalizesCamelCaseIdentifiers(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "blog.yaml", `
namespace: blog
entities:
  - name: blogPost
    autokey: id
    fields:
      - name: authorId
        type: int
      - name: publishedAt
        type: timestamp
        nullable: true
    uniques:
      - name: uq_blog_post_author
        fields: [authorId]
`)
	writeSchema(t, dir, "refs.yaml", `
namespace: blog
entities:
  - name: comment
    autokey: id
    fields:
      - name: postId
        type: int
        references:
          entity: blog.blogPost
`)

	entities, err := LoadDir(dir)
	require.NoError(t, err)

	byName := map[string]*schema.Entity{}
	for _, e := range entities {
		byName[e.QualifiedName()] = e
	}
	post := byName["blog.blog_post"]
	require.NotNil(t, post, "entity name must normalize to snake_case")

	i, _ := post.Ctors[0].FieldNamed("author_id")
	require.NotEqual(t, -1, i)
	require.Equal(t, "author_id", post.Ctors[0].Uniques[0].Members[0].Field)

	// References written in camelCase resolve against the normalized name.
	comment := byName["blog.comment"]
	require.NotNil(t, comment)
	_, postID := comment.Ctors[0].FieldNamed("post_id")
	require.NotNil(t, postID.Type.(*schema.PrimitiveType).Parent)
	require.Same(t, post, postID.Type.(*schema.PrimitiveType).Parent.Entity)
}

func TestLoadDirRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		code qerr.Code
	}{
		{"unknown type", `
namespace: a
entities:
  - name: t
    fields:
      - name: f
        type: nonsense
`, qerr.ErrSchemaInvalid},
		{"dangling reference", `
namespace: a
entities:
  - name: t
    fields:
      - name: f
        type: int
        references:
          entity: a.missing
`, qerr.ErrSchemaInvalid},
		{"duplicate entity", `
namespace: a
entities:
  - name: t
    fields: [{name: f, type: int}]
  - name: t
    fields: [{name: f, type: int}]
`, qerr.ErrSchemaDuplicate},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeSchema(t, dir, "s.yaml", tc.yaml)
			_, err := LoadDir(dir)
			require.Error(t, err)
			require.True(t, qerr.Is(err, tc.code), "got %v", err)
		})
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	rels := []*schema.Relation{
		{
			Name: "auth_user",
			Columns: []schema.Column{
				{Name: "id", Kind: primitive.KindInt64, PrimaryKey: true, AutoIncrement: true},
				{Name: "email", Kind: primitive.KindString},
			},
			Uniques: []schema.UniqueSpec{
				{Name: "uq_auth_user_email", Columns: []string{"email"}},
			},
		},
	}

	path := filepath.Join(t.TempDir(), "snapshot.yaml")
	require.NoError(t, SaveSnapshot(path, rels))

	got, err := LoadSnapshot(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, rels[0].Columns, got["auth_user"].Columns)
	require.Equal(t, rels[0].Uniques, got["auth_user"].Uniques)
}

func TestSnapshotMissingFileMeansEmptySchema(t *testing.T) {
	got, err := LoadSnapshot(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Empty(t, got)
}
