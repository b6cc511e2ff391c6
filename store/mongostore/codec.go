package mongostore

import (
	"fmt"
	"reflect"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
	"go.mongodb.org/mongo-driver/bson/bsonrw"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var decimalType = reflect.TypeOf(decimal.Decimal{})

// NewRegistry returns the default BSON registry extended so that decimal.Decimal
// is stored as Decimal128.
func NewRegistry() *bsoncodec.Registry {
	reg := bson.NewRegistry()
	reg.RegisterTypeEncoder(decimalType, bsoncodec.ValueEncoderFunc(encodeDecimal))
	reg.RegisterTypeDecoder(decimalType, bsoncodec.ValueDecoderFunc(decodeDecimal))
	return reg
}

func encodeDecimal(_ bsoncodec.EncodeContext, vw bsonrw.ValueWriter, val reflect.Value) error {
	if !val.IsValid() || val.Type() != decimalType {
		return bsoncodec.ValueEncoderError{Name: "DecimalEncodeValue", Types: []reflect.Type{decimalType}, Received: val}
	}
	d := val.Interface().(decimal.Decimal)
	d128, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return fmt.Errorf("encode decimal %s: %w", d, err)
	}
	return vw.WriteDecimal128(d128)
}

func decodeDecimal(_ bsoncodec.DecodeContext, vr bsonrw.ValueReader, val reflect.Value) error {
	if !val.CanSet() || val.Type() != decimalType {
		return bsoncodec.ValueDecoderError{Name: "DecimalDecodeValue", Types: []reflect.Type{decimalType}, Received: val}
	}

	var (
		d   decimal.Decimal
		err error
	)
	switch vr.Type() {
	case bsontype.Decimal128:
		d128, rerr := vr.ReadDecimal128()
		if rerr != nil {
			return rerr
		}
		d, err = decimal.NewFromString(d128.String())
	case bsontype.String:
		s, rerr := vr.ReadString()
		if rerr != nil {
			return rerr
		}
		d, err = decimal.NewFromString(s)
	case bsontype.Double:
		f, rerr := vr.ReadDouble()
		if rerr != nil {
			return rerr
		}
		d = decimal.NewFromFloat(f)
	case bsontype.Int32:
		i, rerr := vr.ReadInt32()
		if rerr != nil {
			return rerr
		}
		d = decimal.NewFromInt32(i)
	case bsontype.Int64:
		i, rerr := vr.ReadInt64()
		if rerr != nil {
			return rerr
		}
		d = decimal.NewFromInt(i)
	case bsontype.Null:
		if rerr := vr.ReadNull(); rerr != nil {
			return rerr
		}
	default:
		return fmt.Errorf("cannot decode %v into decimal.Decimal", vr.Type())
	}
	if err != nil {
		return fmt.Errorf("decode decimal: %w", err)
	}
	val.Set(reflect.ValueOf(d))
	return nil
}
