package inference

// SketchClasses is the label order the QuickDraw sketch model was trained with. It is
// used when the model metadata carries no class list.
var SketchClasses = []string{
	// Animals
	"cat", "dog", "bird", "fish", "bear", "butterfly", "bee", "spider",
	// Buildings & structures
	"house", "castle", "barn", "bridge", "lighthouse", "church",
	// Transportation
	"car", "airplane", "bicycle", "boat", "train", "truck", "bus",
	// Nature
	"tree", "flower", "sun", "moon", "cloud", "mountain", "river",
	// Common objects
	"apple", "banana", "book", "chair", "table", "cup", "umbrella",
	// People & body
	"face", "eye", "hand", "foot",
	// Shapes & symbols
	"circle", "triangle", "square", "star", "heart",
	// Tools & items
	"sword", "axe", "hammer", "key", "crown",
}

// COCOClasses are the 80 labels of the pretrained YOLO detector.
var COCOClasses = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat",
	"dog", "horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack",
	"umbrella", "handbag", "tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball",
	"kite", "baseball bat", "baseball glove", "skateboard", "surfboard", "tennis racket",
	"bottle", "wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple",
	"sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair",
	"couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink",
	"refrigerator", "book", "clock", "vase", "scissors", "teddy bear", "hair drier",
	"toothbrush",
}
