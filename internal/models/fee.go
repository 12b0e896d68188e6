package models

import "time"

// FeeRecord is one student's fee obligation for one billing month
type FeeRecord struct {
	ID              string    `json:"_id"`
	Amount          float64   `json:"amount"`
	LMSFee          float64   `json:"lmsFee"`
	PreviousBalance float64   `json:"previousBalance"`
	ExtraFeeAmount  *float64  `json:"extraFeeAmount,omitempty"`
	ExtraFeeName    string    `json:"extraFeeName,omitempty"`
	LateFee         float64   `json:"lateFee"`
	DueDate         time.Time `json:"dueDate"`
	Month           time.Time `json:"month"`
	CreatedAt       time.Time `json:"createdAt"`
	IsFineWavedOff  bool      `json:"isFineWavedOff"`
	IsPaid          bool      `json:"isPaid"`
	IsExpired       bool      `json:"isExpired"`
	SlipNumber      string    `json:"slipNo"`
	Student         Student   `json:"student"`
	Class           Class     `json:"class"`
}

type Student struct {
	ID         string `json:"_id"`
	Name       string `json:"name"`
	FatherName string `json:"fatherName"`
	CompNo     string `json:"compNo"`
	RollNo     string `json:"rollNo"`
}

type Class struct {
	Name    string `json:"name"`
	Section string `json:"section"`
}

// BankRecord is the collecting bank account printed on the challan
type BankRecord struct {
	Name    string `json:"name" validate:"required"`
	Title   string `json:"title" validate:"required"`
	Account string `json:"account" validate:"required,number"`
}

type SchoolInfo struct {
	Name        string `json:"name" validate:"required"`
	LogoURL     string `json:"logo"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

type CampusInfo struct {
	Name string `json:"name"`
}
