package example

import (
	"context"
	"fmt"

	"github.com/dynsql/dynsql"
	"github.com/dynsql/dynsql/sqlite"
)

type Person struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
	Team string `db:"team"`
}

const mapper = `
<mapper namespace="person">
	<sql id="schema">
		create table person (
			id integer primary key autoincrement,
			name text not null,
			team text
		)
	</sql>
	<sql id="cols">id, name, team</sql>
	<insert id="create" useGeneratedKeys="true">
		insert into person (name, team) values (#{name}, #{team})
	</insert>
	<select id="search">
		select <include refid="cols"/> from person
		where 1=1
		<if test="team != null"> and team = #{team}</if>
		order by id
	</select>
	<select id="byIds">
		select <include refid="cols"/> from person
		where id in
		<foreach item="id" collection="ids" open="(" separator="," close=")">#{id}</foreach>
	</select>
</mapper>
`

func example() error {
	ctx := context.Background()

	m := dynsql.New()
	if err := m.Load([]byte(mapper), "person.xml"); err != nil {
		return err
	}

	driver, err := sqlite.Open("file:people.db?mode=memory&cache=shared")
	if err != nil {
		return err
	}
	if err := m.Register(driver); err != nil {
		return err
	}
	defer m.Close()

	s, err := m.Session("sqlite")
	if err != nil {
		return err
	}
	if _, err := s.Exec(ctx, "person.schema", nil); err != nil {
		return err
	}

	people := []Person{
		{Name: "Alastair", Team: "engineering"},
		{Name: "Ed", Team: "engineering"},
		{Name: "Pedro", Team: "management"},
		{Name: "Serdar", Team: "presentation engineering"},
	}

	// Insert everyone in one transaction and collect the generated ids.
	var ids []int64
	err = s.Transaction(ctx, func(ctx context.Context) error {
		for _, p := range people {
			id, err := s.Exec(ctx, "person.create", p)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// The team condition only applies when a team is bound.
	engineers, err := dynsql.Execute[[]Person](ctx, s, "person.search",
		map[string]any{"team": "engineering"})
	if err != nil {
		return err
	}
	for _, p := range engineers {
		fmt.Printf("%s is on the engineering team.\n", p.Name)
	}

	var everyone []Person
	if err := s.Select(ctx, "person.search", nil, &everyone); err != nil {
		return err
	}
	fmt.Printf("%d people in total.\n", len(everyone))

	// Fetch a subset by generated id.
	var some []Person
	err = s.Select(ctx, "person.byIds", map[string]any{"ids": ids[:2]}, &some)
	if err != nil {
		return err
	}
	for _, p := range some {
		fmt.Printf("%d: %s\n", p.ID, p.Name)
	}
	return nil
}
