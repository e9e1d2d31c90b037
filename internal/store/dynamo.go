package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"

	"github.com/fpang/redo-ai/internal/credits"
)

// DynamoDB key constants for the single-table design.
const (
	pkPrefix     = "USER#"
	skCredits    = "CREDITS"
	skGeneration = "GEN#"

	// maxListLimit caps ListGenerations.
	maxListLimit = 100
)

// dynamoAPI is the subset of *dynamodb.Client the store calls.
type dynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoStore implements CreditStore using AWS DynamoDB.
type DynamoStore struct {
	client    dynamoAPI
	tableName string
	starter   int
}

// Compile-time interface check.
var _ CreditStore = (*DynamoStore)(nil)

// NewDynamoStore creates a DynamoStore for the given table. Users with no
// balance record start with starter credits.
func NewDynamoStore(client *dynamodb.Client, tableName string, starter int) *DynamoStore {
	return newDynamoStore(client, tableName, starter)
}

func newDynamoStore(client dynamoAPI, tableName string, starter int) *DynamoStore {
	return &DynamoStore{client: client, tableName: tableName, starter: starter}
}

// --- Internal helpers ---

func userPK(userID string) string {
	return pkPrefix + userID
}

func generationSK(createdAt time.Time, id string) string {
	// Zero-padded nanoseconds sort lexically in time order.
	return fmt.Sprintf("%s%020d#%s", skGeneration, createdAt.UnixNano(), id)
}

func expiresAt(now time.Time) int64 {
	return now.Add(GenerationTTL).Unix()
}

func key(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

func number(n int) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.Itoa(n)}
}

// balanceRecord is the CREDITS item.
type balanceRecord struct {
	Balance   int   `dynamodbav:"balance"`
	UpdatedAt int64 `dynamodbav:"updatedAt"`
}

// updateBalance applies expr to the user's balance and returns the new value.
func (s *DynamoStore) updateBalance(ctx context.Context, userID, expr string, condition *string, amount int) (int, error) {
	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           &s.tableName,
		Key:                 key(userPK(userID), skCredits),
		UpdateExpression:    aws.String(expr),
		ConditionExpression: condition,
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":amt":     number(amount),
			":starter": number(s.starter),
			":now":     &types.AttributeValueMemberN{Value: strconv.FormatInt(time.Now().Unix(), 10)},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return 0, credits.ErrInsufficient
		}
		return 0, fmt.Errorf("UpdateItem PK=%s SK=%s: %w", userPK(userID), skCredits, err)
	}

	var rec balanceRecord
	if err := attributevalue.UnmarshalMap(out.Attributes, &rec); err != nil {
		return 0, fmt.Errorf("unmarshal balance for %s: %w", userID, err)
	}
	return rec.Balance, nil
}

// --- credits.Ledger ---

// Balance returns the stored balance, or the starter allowance when the
// user has no record yet.
func (s *DynamoStore) Balance(ctx context.Context, userID string) (int, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      &s.tableName,
		Key:            key(userPK(userID), skCredits),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return 0, fmt.Errorf("GetItem PK=%s SK=%s: %w", userPK(userID), skCredits, err)
	}
	if result.Item == nil {
		return s.starter, nil
	}
	var rec balanceRecord
	if err := attributevalue.UnmarshalMap(result.Item, &rec); err != nil {
		return 0, fmt.Errorf("unmarshal balance for %s: %w", userID, err)
	}
	return rec.Balance, nil
}

// Reserve deducts amount when the balance covers it. The check and the
// deduction are one conditional update, so concurrent reservations cannot
// overdraw.
func (s *DynamoStore) Reserve(ctx context.Context, userID string, amount int) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("invalid reservation amount %d", amount)
	}
	condition := "balance >= :amt"
	if s.starter >= amount {
		condition = "attribute_not_exists(balance) OR balance >= :amt"
	}
	balance, err := s.updateBalance(ctx, userID,
		"SET balance = if_not_exists(balance, :starter) - :amt, updatedAt = :now",
		aws.String(condition), amount)
	if err != nil {
		log.Debug().Err(err).Str("user", userID).Int("amount", amount).Msg("Credit reservation refused")
		return 0, err
	}
	log.Debug().Str("user", userID).Int("amount", amount).Int("balance", balance).Msg("Credits reserved")
	return balance, nil
}

// Refund returns amount after a failed generation.
func (s *DynamoStore) Refund(ctx context.Context, userID string, amount int) (int, error) {
	balance, err := s.add(ctx, userID, amount)
	if err != nil {
		return 0, fmt.Errorf("refund %d credits to %s: %w", amount, userID, err)
	}
	log.Debug().Str("user", userID).Int("amount", amount).Int("balance", balance).Msg("Credits refunded")
	return balance, nil
}

// Grant adds purchased credits.
func (s *DynamoStore) Grant(ctx context.Context, userID string, amount int) (int, error) {
	balance, err := s.add(ctx, userID, amount)
	if err != nil {
		return 0, fmt.Errorf("grant %d credits to %s: %w", amount, userID, err)
	}
	log.Info().Str("user", userID).Int("amount", amount).Int("balance", balance).Msg("Credits granted")
	return balance, nil
}

func (s *DynamoStore) add(ctx context.Context, userID string, amount int) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("invalid amount %d", amount)
	}
	return s.updateBalance(ctx, userID,
		"SET balance = if_not_exists(balance, :starter) + :amt, updatedAt = :now",
		nil, amount)
}

// --- Generation records ---

func (s *DynamoStore) PutGeneration(ctx context.Context, g *Generation) error {
	now := time.Now()
	if g.CreatedAt == 0 {
		g.CreatedAt = now.Unix()
	}

	item, err := attributevalue.MarshalMap(g)
	if err != nil {
		return fmt.Errorf("marshal generation %s: %w", g.ID, err)
	}
	pk, sk := userPK(g.UserID), generationSK(now, g.ID)
	item["PK"] = &types.AttributeValueMemberS{Value: pk}
	item["SK"] = &types.AttributeValueMemberS{Value: sk}
	item["expiresAt"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(expiresAt(now), 10)}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	}); err != nil {
		return fmt.Errorf("PutItem PK=%s SK=%s: %w", pk, sk, err)
	}

	log.Debug().
		Str("user", g.UserID).
		Str("generationId", g.ID).
		Str("result", g.Result).
		Msg("Generation record persisted")
	return nil
}

func (s *DynamoStore) ListGenerations(ctx context.Context, userID string, limit int) ([]*Generation, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	pk := userPK(userID)
	input := &dynamodb.QueryInput{
		TableName:              &s.tableName,
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :skPrefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":       &types.AttributeValueMemberS{Value: pk},
			":skPrefix": &types.AttributeValueMemberS{Value: skGeneration},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	}

	var gens []*Generation
	for len(gens) < limit {
		result, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("Query PK=%s SK prefix=%s: %w", pk, skGeneration, err)
		}
		for _, item := range result.Items {
			var g Generation
			if err := attributevalue.UnmarshalMap(item, &g); err != nil {
				return nil, fmt.Errorf("unmarshal generation for %s: %w", userID, err)
			}
			g.UserID = userID
			gens = append(gens, &g)
		}
		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
	if len(gens) > limit {
		gens = gens[:limit]
	}
	return gens, nil
}
