package template

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dynsql/dynsql/internal/value"
)

func TestLookupSimple(t *testing.T) {
	ctx := testContext(map[string]value.Value{"a": value.Int64Value(1)})
	assert.True(t, ctx.Lookup("a").Equal(value.Int64Value(1)))
	assert.True(t, ctx.Lookup("b").IsNull())
}

func TestLookupDottedPath(t *testing.T) {
	ctx := testContext(map[string]value.Value{
		"user": value.MapValue(map[string]value.Value{
			"address": value.MapValue(map[string]value.Value{
				"street": value.StringValue("Mill Lane"),
			}),
		}),
	})
	assert.True(t, ctx.Lookup("user.address.street").Equal(value.StringValue("Mill Lane")))
	assert.True(t, ctx.Lookup("user.address.city").IsNull())
	assert.True(t, ctx.Lookup("x.y").IsNull())
}

func TestLookupLocalsShadowRoot(t *testing.T) {
	ctx := testContext(map[string]value.Value{"a": value.Int64Value(1)})
	ctx.Push("a", value.Int64Value(2))
	assert.True(t, ctx.Lookup("a").Equal(value.Int64Value(2)))

	// Nested shadowing resolves to the most recent binding.
	ctx.Push("a", value.Int64Value(3))
	assert.True(t, ctx.Lookup("a").Equal(value.Int64Value(3)))
	ctx.Pop()
	assert.True(t, ctx.Lookup("a").Equal(value.Int64Value(2)))
	ctx.Pop()
	assert.True(t, ctx.Lookup("a").Equal(value.Int64Value(1)))
}

func TestLookupExactMatchBeatsDottedWalk(t *testing.T) {
	ctx := testContext(map[string]value.Value{"a": value.Int64Value(1)})
	ctx.Push("a.b", value.Int64Value(3))
	assert.True(t, ctx.Lookup("a.b").Equal(value.Int64Value(3)))
}

func TestLookupLocalHeadOfPath(t *testing.T) {
	ctx := testContext(nil)
	ctx.Push("item", value.MapValue(map[string]value.Value{
		"id": value.Int64Value(9),
	}))
	assert.True(t, ctx.Lookup("item.id").Equal(value.Int64Value(9)))
}

func TestLookupNamingConventionFallback(t *testing.T) {
	ctx := testContext(map[string]value.Value{
		"userName": value.StringValue("ada"),
		"order_id": value.Int64Value(5),
		"user": value.MapValue(map[string]value.Value{
			"postalCode": value.Int64Value(10031),
		}),
	})
	// snake_case template name resolves against a camelCase field...
	assert.True(t, ctx.Lookup("user_name").Equal(value.StringValue("ada")))
	// ...and the other way round.
	assert.True(t, ctx.Lookup("orderId").Equal(value.Int64Value(5)))
	// Conversion applies per path segment.
	assert.True(t, ctx.Lookup("user.postal_code").Equal(value.Int64Value(10031)))
	// An exact match always wins over the converted form.
	assert.True(t, ctx.Lookup("order_id").Equal(value.Int64Value(5)))
	assert.True(t, ctx.Lookup("nothing_here").IsNull())
}

func TestConvertPath(t *testing.T) {
	assert.Equal(t, "userName", convertPath("user_name"))
	assert.Equal(t, "user_name", convertPath("userName"))
	assert.Equal(t, "user.postalCode", convertPath("user.postal_code"))
}
