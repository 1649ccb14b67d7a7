package ddb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbTypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/klauspost/compress/zstd"
)

// API is the slice of the DynamoDB client the store needs.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

const encodingZstd = "zstd"

var enc, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
var dec, _ = zstd.NewReader(nil)

// KVStore keeps each value in one item of a single-table layout. Values are
// zstd-compressed since a DynamoDB item is capped at 400 KB and the history log only grows.
type KVStore struct {
	table string
	cli   API
}

type kvItem struct {
	PK       string `dynamodbav:"PK"`
	SK       string `dynamodbav:"SK"`
	Value    []byte `dynamodbav:"val"`
	Encoding string `dynamodbav:"enc"`
	RawSize  int    `dynamodbav:"raw_size"`
}

// NewKVStore creates the table when it does not exist yet.
func NewKVStore(ctx context.Context, table string, cli API) (*KVStore, error) {
	if err := createTableIfNotExists(ctx, cli, table); err != nil {
		return nil, err
	}
	return &KVStore{table: table, cli: cli}, nil
}

func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.cli.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      &s.table,
		ConsistentRead: awsBool(true),
		Key:            itemKey(key),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, nil
	}
	var it kvItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, err
	}
	switch it.Encoding {
	case "":
		return it.Value, nil
	case encodingZstd:
		return dec.DecodeAll(it.Value, make([]byte, 0, it.RawSize))
	default:
		return nil, fmt.Errorf("unknown value encoding %q", it.Encoding)
	}
}

func (s *KVStore) Set(ctx context.Context, key string, value []byte) error {
	av, err := attributevalue.MarshalMap(kvItem{
		PK:       pkKV(key),
		SK:       skValue(),
		Value:    enc.EncodeAll(value, make([]byte, 0, len(value))),
		Encoding: encodingZstd,
		RawSize:  len(value),
	})
	if err != nil {
		return err
	}
	_, err = s.cli.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.table,
		Item:      av,
	})
	return err
}

func (s *KVStore) Delete(ctx context.Context, key string) error {
	_, err := s.cli.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: &s.table,
		Key:       itemKey(key),
	})
	return err
}

func (s *KVStore) Close() error { return nil }

func itemKey(key string) map[string]ddbTypes.AttributeValue {
	return map[string]ddbTypes.AttributeValue{
		"PK": &ddbTypes.AttributeValueMemberS{Value: pkKV(key)},
		"SK": &ddbTypes.AttributeValueMemberS{Value: skValue()},
	}
}
