package storage

import (
	"context"
	"testing"

	"kitscan/internal/model"
)

func TestValidateContext(t *testing.T) {
	tests := []struct {
		ctx     context.Context
		name    string
		wantErr bool
	}{
		{
			name:    "valid context",
			ctx:     context.Background(),
			wantErr: false,
		},
		{
			name:    "nil context",
			ctx:     nil,
			wantErr: true,
		},
		{
			name: "canceled context still valid",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			}(),
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateContext(tt.ctx)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateContext() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateString(t *testing.T) {
	tests := []struct {
		name      string
		str       string
		paramName string
		wantErr   bool
	}{
		{
			name:      "valid string",
			str:       "ledger",
			paramName: "dir",
			wantErr:   false,
		},
		{
			name:      "empty string",
			str:       "",
			paramName: "dir",
			wantErr:   true,
		},
		{
			name:      "whitespace only",
			str:       "   ",
			paramName: "dir",
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateString(tt.str, tt.paramName)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateString() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCheckoutRecord(t *testing.T) {
	tests := []struct {
		name    string
		record  model.CheckoutRecord
		wantErr bool
	}{
		{
			name:    "valid checkout",
			record:  model.CheckoutRecord{Type: model.RecordCheckout, UserID: "USER1", KitID: "KIT1", Value: "KIT1"},
			wantErr: false,
		},
		{
			name:    "valid checkin",
			record:  model.CheckoutRecord{Type: model.RecordCheckin, UserID: "USER1", KitID: "KIT1", Value: "KIT1"},
			wantErr: false,
		},
		{
			name:    "valid other without pair",
			record:  model.CheckoutRecord{Type: model.RecordOther, Value: "asset #42"},
			wantErr: false,
		},
		{
			name:    "unknown type",
			record:  model.CheckoutRecord{Type: "LOAN", Value: "x"},
			wantErr: true,
		},
		{
			name:    "missing value",
			record:  model.CheckoutRecord{Type: model.RecordOther},
			wantErr: true,
		},
		{
			name:    "checkout missing user id",
			record:  model.CheckoutRecord{Type: model.RecordCheckout, KitID: "KIT1", Value: "KIT1"},
			wantErr: true,
		},
		{
			name:    "checkout missing kit id",
			record:  model.CheckoutRecord{Type: model.RecordCheckout, UserID: "USER1", Value: "USER1"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateCheckoutRecord(tt.record)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateCheckoutRecord() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateKitRecord(t *testing.T) {
	withComponent := model.KitRecord{KitID: "K1-08/25", BaseKitCode: "K1", CreationDate: "08/25"}
	withComponent.SetComponent(model.SlotGlasses, "G0G3481234")

	tests := []struct {
		name    string
		record  model.KitRecord
		wantErr bool
	}{
		{
			name:    "valid kit",
			record:  withComponent,
			wantErr: false,
		},
		{
			name:    "missing kit id",
			record:  model.KitRecord{BaseKitCode: "K1", CreationDate: "08/25", Glasses: "G0G3481234"},
			wantErr: true,
		},
		{
			name:    "missing base code",
			record:  model.KitRecord{KitID: "K1-08/25", CreationDate: "08/25", Glasses: "G0G3481234"},
			wantErr: true,
		},
		{
			name:    "no components",
			record:  model.KitRecord{KitID: "K1-08/25", BaseKitCode: "K1", CreationDate: "08/25"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateKitRecord(tt.record)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateKitRecord() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
