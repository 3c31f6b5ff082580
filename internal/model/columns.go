package model

// CSV column names. These match the exports the station and the weather
// service produce and must not be translated or reformatted.
const (
	ColDate       = "날짜"
	ColTime       = "시간"
	ColSeaLevel   = "해수위(ELm)"
	ColLakeLevel  = "호수위(ELm)"
	ColEnergy     = "합계(킬로와트시)"
	ColObserved   = "일시"
	ColAvgRain    = "평균강수량(mm)"
	ColRain       = "강수량(mm)"
	ColStation    = "지점"
	ColStationNm  = "지점명"
	ColHead       = "낙차"
	ColEfficiency = "efficiency"
	ColHeadGroup  = "head_group"
	ColStatus     = "status"
	ColLossKWh    = "loss_kwh"
	ColLossKRW    = "loss_krw"

	ColMonth    = "month"
	ColEnvDate  = "date"
	ColRainSum  = "rain_sum"
	ColRainAvg  = "rain_avg"
	ColWasteSum = "waste_sum"
)
