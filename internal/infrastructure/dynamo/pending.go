package dynamo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Gwishyman/emailotp/internal/domain"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// PendingStore is the DynamoDB-backed pending-verification store.
// PK: user_id; expires_at doubles as the table's TTL attribute so records
// abandoned mid-session eventually disappear on their own.
type PendingStore struct {
	client    *dynamodb.Client
	tableName string
}

func NewPendingStore(client *dynamodb.Client, tableName string) *PendingStore {
	return &PendingStore{client: client, tableName: tableName}
}

func (s *PendingStore) Begin(ctx context.Context, userID, email, code string, ttl time.Duration, maxAttempts int) (bool, error) {
	rec := &domain.PendingVerification{
		UserID:       userID,
		Email:        email,
		Code:         code,
		ExpiresAt:    time.Now().Add(ttl).Unix(),
		AttemptsLeft: maxAttempts,
	}
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return false, fmt.Errorf("marshal pending verification: %w", err)
	}
	out, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:    aws.String(s.tableName),
		Item:         item,
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return false, fmt.Errorf("put pending verification: %w", err)
	}
	return len(out.Attributes) > 0, nil
}

func (s *PendingStore) Get(ctx context.Context, userID string) (*domain.PendingVerification, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       strKey("user_id", userID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("pending verification for %s: %w", userID, domain.ErrNotFound)
	}
	var rec domain.PendingVerification
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *PendingStore) Validate(ctx context.Context, userID, code string, now time.Time) (domain.Outcome, error) {
	rec, err := s.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Outcome{Status: domain.OutcomeNoPending}, nil
		}
		return domain.Outcome{}, err
	}

	if now.Unix() > rec.ExpiresAt {
		s.remove(ctx, userID)
		return domain.Outcome{Status: domain.OutcomeExpired}, nil
	}

	if code != rec.Code {
		rec.AttemptsLeft--
		if rec.AttemptsLeft <= 0 {
			s.remove(ctx, userID)
		} else {
			_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
				TableName:                 aws.String(s.tableName),
				Key:                       strKey("user_id", userID),
				UpdateExpression:          aws.String("SET attempts_left = :a"),
				ExpressionAttributeValues: map[string]types.AttributeValue{":a": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", rec.AttemptsLeft)}},
			})
			if err != nil {
				return domain.Outcome{}, fmt.Errorf("decrement attempts: %w", err)
			}
		}
		return domain.Outcome{Status: domain.OutcomeMismatch, AttemptsLeft: rec.AttemptsLeft}, nil
	}

	s.remove(ctx, userID)
	return domain.Outcome{Status: domain.OutcomeVerified, Email: rec.Email}, nil
}

func (s *PendingStore) Cancel(ctx context.Context, userID string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       strKey("user_id", userID),
	})
	return err
}

func (s *PendingStore) remove(ctx context.Context, userID string) {
	if err := s.Cancel(ctx, userID); err != nil {
		slog.Warn("failed to delete pending verification", "user_id", userID, "err", err)
	}
}

