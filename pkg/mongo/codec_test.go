package mongo

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type codecDoc struct {
	ID       uuid.UUID        `bson:"_id"`
	Ref      *uuid.UUID       `bson:"ref,omitempty"`
	Price    decimal.Decimal  `bson:"price"`
	Quoted   *decimal.Decimal `bson:"quoted,omitempty"`
	Quantity int              `bson:"quantity"`
}

func marshal(t *testing.T, v any) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc := bson.NewEncoder(bson.NewDocumentWriter(&buf))
	enc.SetRegistry(NewRegistry())
	require.NoError(t, enc.Encode(v))
	return buf.Bytes()
}

func unmarshal(t *testing.T, raw []byte, v any) {
	t.Helper()
	dec := bson.NewDecoder(bson.NewDocumentReader(bytes.NewReader(raw)))
	dec.SetRegistry(NewRegistry())
	require.NoError(t, dec.Decode(v))
}

func TestCodecRoundTrip(t *testing.T) {
	ref := uuid.New()
	quoted := decimal.RequireFromString("99.90")
	in := codecDoc{
		ID:       uuid.New(),
		Ref:      &ref,
		Price:    decimal.RequireFromString("2.50"),
		Quoted:   &quoted,
		Quantity: 3,
	}

	raw := marshal(t, in)

	var doc bson.Raw = raw
	subtype, data := doc.Lookup("_id").Binary()
	assert.Equal(t, uuidSubtype, subtype)
	assert.Equal(t, in.ID[:], data)
	assert.Equal(t, "2.5", doc.Lookup("price").StringValue())

	var out codecDoc
	unmarshal(t, raw, &out)
	assert.Equal(t, in.ID, out.ID)
	require.NotNil(t, out.Ref)
	assert.Equal(t, ref, *out.Ref)
	assert.True(t, in.Price.Equal(out.Price))
	require.NotNil(t, out.Quoted)
	assert.True(t, quoted.Equal(*out.Quoted))
}

func TestDecimalDecodesNumericTypes(t *testing.T) {
	raw, err := bson.Marshal(bson.D{{Key: "_id", Value: uuid.NewString()}, {Key: "price", Value: 3.75}, {Key: "quantity", Value: 1}})
	require.NoError(t, err)

	var out codecDoc
	unmarshal(t, raw, &out)
	assert.True(t, decimal.RequireFromString("3.75").Equal(out.Price))
	assert.NotEqual(t, uuid.Nil, out.ID)
}
