package vec

import "math"

// Vec2Float представляет 2D координаты карты с плавающей точкой
type Vec2Float struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add складывает два вектора
func (v Vec2Float) Add(other Vec2Float) Vec2Float {
	return Vec2Float{X: v.X + other.X, Y: v.Y + other.Y}
}

// Sub вычитает вектор
func (v Vec2Float) Sub(other Vec2Float) Vec2Float {
	return Vec2Float{X: v.X - other.X, Y: v.Y - other.Y}
}

// Mul умножает вектор на скаляр
func (v Vec2Float) Mul(scalar float64) Vec2Float {
	return Vec2Float{X: v.X * scalar, Y: v.Y * scalar}
}

// Length возвращает длину вектора
func (v Vec2Float) Length() float64 {
	return math.Hypot(v.X, v.Y)
}

// DistanceTo вычисляет расстояние до другой точки
func (v Vec2Float) DistanceTo(other Vec2Float) float64 {
	return math.Hypot(other.X-v.X, other.Y-v.Y)
}

// AngleTo возвращает угол (радианы, 0 = +X) направления от v к other
func (v Vec2Float) AngleTo(other Vec2Float) float64 {
	return math.Atan2(other.Y-v.Y, other.X-v.X)
}

// FromPolar строит вектор длины length под углом angle
func FromPolar(angle, length float64) Vec2Float {
	return Vec2Float{X: math.Cos(angle) * length, Y: math.Sin(angle) * length}
}
