package services

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"lineup_server/models"
)

type UserProfileService struct {
	Dynamo DB
}

// UpsertUserProfile writes a user profile to DynamoDB
func (ups *UserProfileService) UpsertUserProfile(ctx context.Context, profile models.UserProfile) (*models.UserProfile, error) {
	if profile.UserID == "" {
		return nil, fmt.Errorf("userId is required")
	}
	if err := ups.Dynamo.PutItem(ctx, models.UserProfilesTable, profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetUserProfile retrieves a user profile by ID
func (ups *UserProfileService) GetUserProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	key := map[string]types.AttributeValue{
		"userId": &types.AttributeValueMemberS{Value: userID},
	}

	item, err := ups.Dynamo.GetItem(ctx, models.UserProfilesTable, key)
	if err != nil {
		return nil, err
	}

	var profile models.UserProfile
	if err := attributevalue.UnmarshalMap(item, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}

	return &profile, nil
}

// ConnectionProfileFor projects the slice of a profile stored inside a
// connection document.
func (ups *UserProfileService) ConnectionProfileFor(profile models.UserProfile) models.ConnectionProfile {
	return models.ConnectionProfile{
		DisplayName:         profile.DisplayName,
		PhotoURL:            profile.PhotoURL,
		ContinuePermanently: false,
	}
}
