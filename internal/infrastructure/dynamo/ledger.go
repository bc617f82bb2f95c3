package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Gwishyman/emailotp/internal/domain"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Ledger is the DynamoDB-backed verified-identity ledger. PK: username.
// The conditional put makes recordIfAbsent atomic, so two concurrent
// verifications for the same handle cannot both win.
type Ledger struct {
	client    *dynamodb.Client
	tableName string
}

func NewLedger(client *dynamodb.Client, tableName string) *Ledger {
	return &Ledger{client: client, tableName: tableName}
}

// Init is a no-op: Bootstrap creates the table at startup.
func (l *Ledger) Init(context.Context) error { return nil }

func (l *Ledger) RecordIfAbsent(ctx context.Context, email, handle string) (bool, error) {
	item, err := attributevalue.MarshalMap(&domain.VerifiedIdentity{Email: email, Handle: handle})
	if err != nil {
		return false, fmt.Errorf("marshal verified identity: %w", err)
	}
	_, err = l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(l.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(username)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			// Handle already recorded — first write wins.
			return false, nil
		}
		return false, fmt.Errorf("record verified identity: %w", err)
	}
	return true, nil
}

func (l *Ledger) Count(ctx context.Context) (int, error) {
	total := 0
	var startKey map[string]types.AttributeValue
	for {
		out, err := l.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(l.tableName),
			Select:            types.SelectCount,
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return 0, fmt.Errorf("count verified identities: %w", err)
		}
		total += int(out.Count)
		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return total, nil
}
