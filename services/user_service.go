package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Majd04/StepChallenge/config"
	"github.com/Majd04/StepChallenge/models"
	"github.com/Majd04/StepChallenge/utils"
)

type ProfileInput struct {
	DisplayName   string `json:"display_name"`
	DailyStepGoal int    `json:"daily_step_goal"`
	Photo         string `json:"photo"` // base64 data URI
}

func GetUserProfile(userID string) (map[string]interface{}, error) {
	var user models.User
	result := config.DB.Where("user_id = ? AND disabled = ?", userID, false).First(&user)
	if result.Error != nil {
		return nil, errors.New("user not found or disabled")
	}

	return map[string]interface{}{
		"user_id":         user.UserID,
		"email":           user.Email,
		"display_name":    user.DisplayName,
		"photo_url":       user.PhotoURL,
		"daily_step_goal": user.DailyStepGoal,
		"total_steps":     user.TotalSteps,
		"weekly_steps":    user.WeeklySteps,
		"monthly_steps":   user.MonthlySteps,
		"mfa_enabled":     user.MFAEnabled,
		"created_at":      user.CreatedAt.Format("2006-01-02"),
	}, nil
}

func UpdateUserProfile(userID string, input ProfileInput) error {
	var user models.User
	result := config.DB.Where("user_id = ? AND disabled = ?", userID, false).First(&user)
	if result.Error != nil {
		return errors.New("user not found or disabled")
	}

	if input.DisplayName != "" {
		user.DisplayName = input.DisplayName
	}
	if input.DailyStepGoal > 0 {
		user.DailyStepGoal = input.DailyStepGoal
	}
	if input.Photo != "" {
		imageData, contentType, err := utils.DecodeBase64Image(input.Photo)
		if err != nil {
			return fmt.Errorf("invalid photo: %v", err)
		}
		labels, err := utils.ModerateProfilePhoto(imageData)
		if err != nil {
			return fmt.Errorf("failed to screen photo: %v", err)
		}
		if len(labels) > 0 {
			return fmt.Errorf("photo rejected: %s", strings.Join(labels, ", "))
		}
		url, err := utils.UploadProfilePhoto(imageData, contentType, user.UserID)
		if err != nil {
			return fmt.Errorf("failed to upload photo: %v", err)
		}
		user.PhotoURL = url
	}

	return config.DB.Save(&user).Error
}

func FindUserByEmail(email string) (*models.User, error) {
	var user models.User
	result := config.DB.First(&user, "email = ?", email)
	if result.Error != nil {
		return nil, errors.New("user not found")
	}
	return &user, nil
}

func FindUserByID(userID string) (*models.User, error) {
	var user models.User
	result := config.DB.First(&user, "user_id = ?", userID)
	if result.Error != nil {
		return nil, errors.New("user not found")
	}
	return &user, nil
}

func DeleteUser(userID string) error {
	var user models.User
	result := config.DB.First(&user, "user_id = ?", userID)
	if result.Error != nil {
		return result.Error
	}
	user.Disabled = true
	return config.DB.Save(&user).Error
}
