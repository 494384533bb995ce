package services

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/Majd04/StepChallenge/config"
	"github.com/Majd04/StepChallenge/models"
	"github.com/Majd04/StepChallenge/utils"
)

func RegisterUser(email, password, displayName string) error {
	hashedPassword, err := utils.HashPassword(password)
	if err != nil {
		return err
	}

	base := strings.ToLower(strings.ReplaceAll(displayName, " ", ""))
	if base == "" {
		base = "walker"
	}
	userID := fmt.Sprintf("%s%d", base, rand.Intn(100000))

	user := models.User{
		UserID:        userID,
		Email:         email,
		Password:      hashedPassword,
		DisplayName:   displayName,
		DailyStepGoal: 10000,
		Disabled:      false,
	}

	result := config.DB.Create(&user)
	return result.Error
}

func AuthenticateUser(email, password string) (string, error) {
	var user models.User
	result := config.DB.Where("email = ? AND disabled = ?", email, false).First(&user)
	if result.Error != nil {
		return "", errors.New("user not found or disabled")
	}

	if !utils.CheckPasswordHash(password, user.Password) {
		return "", errors.New("incorrect password")
	}

	token, err := utils.GenerateJWT(user.UserID, user.Email)
	if err != nil {
		return "", err
	}

	return token, nil
}
