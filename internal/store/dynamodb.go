package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dsnet/compress/bzip2"
)

// MaxDynamoSnapshotBytes bounds the compressed document so that the item
// stays under the 400 KB DynamoDB item limit with its other attributes
const MaxDynamoSnapshotBytes = 390 * 1024

// ErrSnapshotTooLarge is returned when a compressed snapshot does not fit
// in one DynamoDB item
var ErrSnapshotTooLarge = errors.New("snapshot too large for dynamodb item")

// DynamoDBAPI interface for mocking
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

type dynamoItem struct {
	ID        string  `dynamodbav:"id"`
	Lat       float64 `dynamodbav:"lat"`
	Lon       float64 `dynamodbav:"lon"`
	Dist      int     `dynamodbav:"dist"`
	Snapshot  string  `dynamodbav:"snapshot,omitempty"` // Uncompressed, older items
	Packed    []byte  `dynamodbav:"snapshot_bz2,omitempty"`
	UpdatedAt int64   `dynamodbav:"updated_at"`
}

// DynamoStore keeps snapshots in a DynamoDB table keyed by "id"
type DynamoStore struct {
	client    DynamoDBAPI
	tableName string
	now       func() time.Time
}

// NewDynamoStore creates a DynamoDB backed store
func NewDynamoStore(client DynamoDBAPI, tableName string) *DynamoStore {
	return &DynamoStore{
		client:    client,
		tableName: tableName,
		now:       time.Now,
	}
}

func (d *DynamoStore) key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: id},
	}
}

// Save puts the snapshot, replacing any previous one
func (d *DynamoStore) Save(ctx context.Context, snap Snapshot) error {
	packed, err := compress(snap.Data)
	if err != nil {
		return err
	}
	if len(packed) > MaxDynamoSnapshotBytes {
		return fmt.Errorf("%w: %s is %d bytes compressed", ErrSnapshotTooLarge, snap.ID, len(packed))
	}

	item, err := attributevalue.MarshalMap(dynamoItem{
		ID:        snap.ID,
		Lat:       snap.Lat,
		Lon:       snap.Lon,
		Dist:      snap.Dist,
		Packed:    packed,
		UpdatedAt: d.now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to put snapshot: %w", err)
	}
	return nil
}

// Load reads a snapshot
func (d *DynamoStore) Load(ctx context.Context, id string) ([]byte, error) {
	result, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tableName),
		Key:       d.key(id),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	if result.Item == nil {
		return nil, ErrNotFound
	}

	var item dynamoItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	if len(item.Packed) == 0 {
		return []byte(item.Snapshot), nil
	}
	return decompress(item.Packed)
}

// Delete removes a snapshot. The previous item is requested back to tell a
// missing id apart.
func (d *DynamoStore) Delete(ctx context.Context, id string) error {
	result, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(d.tableName),
		Key:          d.key(id),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	if len(result.Attributes) == 0 {
		return ErrNotFound
	}
	return nil
}

// List scans the table, without the snapshot documents
func (d *DynamoStore) List(ctx context.Context) ([]Summary, error) {
	summaries := []Summary{}

	var startKey map[string]types.AttributeValue
	for {
		result, err := d.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:            aws.String(d.tableName),
			ProjectionExpression: aws.String("#id, #lat, #lon, #dist, #updated"),
			ExpressionAttributeNames: map[string]string{
				"#id":      "id",
				"#lat":     "lat",
				"#lon":     "lon",
				"#dist":    "dist",
				"#updated": "updated_at",
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshots: %w", err)
		}

		for _, raw := range result.Items {
			var item dynamoItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
			}
			summaries = append(summaries, Summary{
				ID:        item.ID,
				Lat:       item.Lat,
				Lon:       item.Lon,
				Dist:      item.Dist,
				UpdatedAt: time.Unix(item.UpdatedAt, 0),
			})
		}

		if len(result.LastEvaluatedKey) == 0 {
			break
		}
		startKey = result.LastEvaluatedKey
	}

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })
	return summaries, nil
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	bz, err := bzip2.NewWriter(&buf, &bzip2.WriterConfig{})
	if err != nil {
		return nil, fmt.Errorf("failed to compress snapshot: %w", err)
	}
	if _, err := bz.Write(data); err != nil {
		return nil, fmt.Errorf("failed to compress snapshot: %w", err)
	}
	if err := bz.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

func decompress(packed []byte) ([]byte, error) {
	bz, err := bzip2.NewReader(bytes.NewReader(packed), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress snapshot: %w", err)
	}
	defer bz.Close()

	data, err := io.ReadAll(bz)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress snapshot: %w", err)
	}
	return data, nil
}
