package s3

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DDBClient is the interface for DynamoDB operations.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// ErrConcurrentCommit is returned when another writer committed the same
// version first.
var ErrConcurrentCommit = errors.New("concurrent commit detected")

// Commit records a successfully uploaded index file.
type Commit struct {
	// IndexName is the logical index the file belongs to.
	IndexName string
	// Version is the monotonically increasing commit version.
	Version uint64
	// ObjectKey is the S3 key of the uploaded file.
	ObjectKey string
	// Size is the file size in bytes.
	Size int64
	// BuildID identifies the build job that produced the file.
	BuildID string
	// CreatedAt is when the commit was recorded.
	CreatedAt time.Time
}

// CommitStore records index uploads in DynamoDB so readers can atomically
// discover the newest file for an index. S3 alone cannot provide the
// compare-and-swap needed for safe concurrent writers; DynamoDB conditional
// writes supply it.
//
// Table schema:
//   - Partition key: index_name (string)
//   - Sort key: version (number), monotonically increasing
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name vecforge-commits \
//	  --attribute-definitions AttributeName=index_name,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=index_name,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type CommitStore struct {
	client    DDBClient
	tableName string
}

// NewCommitStore creates a commit store on the given DynamoDB table.
func NewCommitStore(client DDBClient, tableName string) *CommitStore {
	return &CommitStore{client: client, tableName: tableName}
}

// Latest returns the newest commit for an index, or nil when none exists.
func (s *CommitStore) Latest(ctx context.Context, indexName string) (*Commit, error) {
	resp, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("index_name = :name"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":name": &types.AttributeValueMemberS{Value: indexName},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query commits: %w", err)
	}
	if len(resp.Items) == 0 {
		return nil, nil
	}
	return commitFromItem(indexName, resp.Items[0])
}

// Record commits the next version for an index. The conditional write fails
// with ErrConcurrentCommit if another writer claimed the version first.
func (s *CommitStore) Record(ctx context.Context, c Commit) (*Commit, error) {
	latest, err := s.Latest(ctx, c.IndexName)
	if err != nil {
		return nil, err
	}

	c.Version = 1
	if latest != nil {
		c.Version = latest.Version + 1
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			"index_name": &types.AttributeValueMemberS{Value: c.IndexName},
			"version":    &types.AttributeValueMemberN{Value: strconv.FormatUint(c.Version, 10)},
			"object_key": &types.AttributeValueMemberS{Value: c.ObjectKey},
			"size":       &types.AttributeValueMemberN{Value: strconv.FormatInt(c.Size, 10)},
			"build_id":   &types.AttributeValueMemberS{Value: c.BuildID},
			"created_at": &types.AttributeValueMemberS{Value: c.CreatedAt.Format(time.RFC3339Nano)},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return nil, ErrConcurrentCommit
		}
		return nil, fmt.Errorf("failed to record commit: %w", err)
	}

	return &c, nil
}

func commitFromItem(indexName string, item map[string]types.AttributeValue) (*Commit, error) {
	versionAttr, ok := item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return nil, errors.New("invalid version attribute in commit record")
	}
	version, err := strconv.ParseUint(versionAttr.Value, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse commit version: %w", err)
	}

	c := &Commit{IndexName: indexName, Version: version}

	if attr, ok := item["object_key"].(*types.AttributeValueMemberS); ok {
		c.ObjectKey = attr.Value
	}
	if attr, ok := item["size"].(*types.AttributeValueMemberN); ok {
		c.Size, _ = strconv.ParseInt(attr.Value, 10, 64)
	}
	if attr, ok := item["build_id"].(*types.AttributeValueMemberS); ok {
		c.BuildID = attr.Value
	}
	if attr, ok := item["created_at"].(*types.AttributeValueMemberS); ok {
		c.CreatedAt, _ = time.Parse(time.RFC3339Nano, attr.Value)
	}

	return c, nil
}
