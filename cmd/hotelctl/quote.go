package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/prohmpiriya/hotel-booking-engine/internal/domain"
	"github.com/prohmpiriya/hotel-booking-engine/internal/dto"
	"github.com/spf13/cobra"
)

func QuoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a stay with the hotel's current rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			hotelID, _ := cmd.Flags().GetString("hotel")
			roomTypeID, _ := cmd.Flags().GetString("room-type")
			checkInStr, _ := cmd.Flags().GetString("check-in")
			checkOutStr, _ := cmd.Flags().GetString("check-out")
			couponCode, _ := cmd.Flags().GetString("coupon")

			checkIn, checkOut, err := dto.ParseStay(checkInStr, checkOutStr)
			if err != nil {
				return err
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			db, err := connectDB(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			container := buildContainer(cfg, db)
			ctx := cmd.Context()

			quote, err := container.PricingService.Quote(ctx, hotelID, roomTypeID, checkIn, checkOut, 0)
			if err != nil {
				return err
			}

			var coupon *domain.CouponValidation
			if couponCode != "" {
				coupon, err = container.CouponService.Validate(ctx, couponCode, hotelID, quote.Subtotal, "")
				if err != nil {
					return err
				}
				if coupon.Valid {
					quote, err = container.PricingService.Quote(ctx, hotelID, roomTypeID, checkIn, checkOut, coupon.DiscountAmount)
					if err != nil {
						return err
					}
				}
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(dto.QuoteFromDomain(quote, coupon)); err != nil {
				return fmt.Errorf("failed to write quote: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().String("hotel", "", "Hotel id")
	cmd.Flags().String("room-type", "", "Room type id")
	cmd.Flags().String("check-in", "", "Check-in date (YYYY-MM-DD)")
	cmd.Flags().String("check-out", "", "Check-out date (YYYY-MM-DD)")
	cmd.Flags().String("coupon", "", "Optional coupon code")
	_ = cmd.MarkFlagRequired("hotel")
	_ = cmd.MarkFlagRequired("room-type")
	_ = cmd.MarkFlagRequired("check-in")
	_ = cmd.MarkFlagRequired("check-out")
	return cmd
}
