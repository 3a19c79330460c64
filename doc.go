/*
Package dynsql is a database-access layer that keeps SQL in XML mapper
files and renders it dynamically per call.

Statements live in mapper units, one XML document per namespace. A
statement body is ordinary SQL extended with a small template vocabulary:
#{name} binds a parameter, <if test="..."> includes its body
conditionally, <foreach> expands a collection, and <include refid="..."/>
splices a shared fragment. Bodies are parsed once and cached; rendering
walks the cached tree against the call's arguments and emits SQL text
plus an ordered parameter list. Argument values only ever travel in the
parameter list, never in the SQL text.

# Basics

A mapper unit looks like this:

	<mapper namespace="person">
		<sql id="cols">id, name, team</sql>
		<select id="byTeam">
			select <include refid="cols"/> from person
			where 1=1
			<if test="team != null"> and team = #{team}</if>
		</select>
		<insert id="create" useGeneratedKeys="true">
			insert into person (name, team) values (#{name}, #{team})
		</insert>
	</mapper>

Statements are addressed as "namespace.id". Load the unit into a
Manager, register a driver and execute through a Session:

	m := dynsql.New()
	if err := m.Load(mapperXML, "person.xml"); err != nil { ... }

	driver, err := sqlite.Open("file:people.db")
	...
	if err := m.Register(driver); err != nil { ... }

	s, err := m.Session("sqlite")
	...
	var people []Person
	err = s.Select(ctx, "person.byTeam", map[string]any{"team": "core"}, &people)

Arguments may be a map or a tagged struct; template names resolve
against `db` tags, falling back across snake_case and camelCase forms.
Select decodes into slices, structs, maps or scalars depending on the
destination shape and the row count. Exec returns the affected-row
count, or the generated key for inserts marked useGeneratedKeys.

# Statement variants

A statement may carry a databaseType attribute. Lookup prefers the
variant matching the session's driver type and falls back to the
untyped one, so one mapper file can serve several engines:

	<delete id="prune" databaseType="sqlite">...</delete>
	<delete id="prune">...</delete>

# Transactions

Session.Begin pins one connection until Commit or Rollback; statements
issued in between share it. Commit and Rollback are no-ops without an
active transaction. Session.Transaction wraps the pattern:

	err := s.Transaction(ctx, func(ctx context.Context) error {
		if _, err := s.Exec(ctx, "person.create", alice); err != nil {
			return err
		}
		_, err := s.Exec(ctx, "person.create", bob)
		return err
	})

A transaction dropped without resolution is rolled back in the
background and logged; rely on it only as a safety net.
*/
package dynsql
