package main

import (
	"fmt"
	"strings"

	json "github.com/KevinWang15/go-json5"
)

// SimulationRequest holds the validated contents of a parameter file. Lengths are in um and
// angles in degrees.
type SimulationRequest struct {
	Title            string
	Mode             string // "1d", "2d" or "dft"
	WavelengthsNm    []float64
	Weights          []float64 // relative weight of each wavelength, peak 1
	PathToSpectrum   string
	PitchUm          float64
	PitchYUm         float64
	MirrorWidthUm    float64
	MirrorWidthYUm   float64
	GammaOnDeg       float64
	GammaOffDeg      float64
	Pattern          PatternRequest
	InputAnglesDeg   []float64
	OutputOffset     *OffsetRange
	NumDiffOrders    int
	DFTOrder         [2]int
	DFTOrderGiven    bool
	Workers          int
	TimeoutSecs      float64
	OutputFolder     string
	SaveResult       bool
	ShowInput        bool
	WindowSizePixels int
}

// PatternRequest describes the DMD pattern: either an image file or a generated pattern.
type PatternRequest struct {
	PathToImage string
	Kind        string // "random", "on", "off", "stripes" or "ellipse"
	Nx, Ny      int
	Period      int
	Seed        uint64
	// ellipse only, in mirrors and degrees
	XDiam, YDiam float64
	AngleDeg     float64
}

// OffsetRange is a sweep of output angles relative to the blaze direction.
type OffsetRange struct {
	MinDeg    float64
	MaxDeg    float64
	NumPoints int
}

func parseArrayFormat(data []byte) ([][2]float64, error) {
	var pairs [][2]float64
	err := json.Unmarshal(data, &pairs)
	return pairs, err
}

func getLeafValue(jsonTable map[string]interface{}, path ...string) (interface{}, bool) {
	var cur interface{} = jsonTable
	for _, p := range path {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// getFloatArray reads an array of numbers. The message is empty on success.
func getFloatArray(jsonTable map[string]interface{}, path ...string) ([]float64, bool, string) {
	key := strings.Join(path, ".")
	v, ok := getLeafValue(jsonTable, path...)
	if !ok {
		return nil, false, ""
	}
	items, ok := v.([]interface{})
	if !ok {
		return nil, true, key + ": is not an array"
	}
	values := make([]float64, len(items))
	for i, item := range items {
		values[i], ok = item.(float64)
		if !ok {
			return nil, true, fmt.Sprintf("%s[%d]: is not a float64", key, i)
		}
	}
	return values, true, ""
}

func validateJsonFileAndFillRequest(jsonTable map[string]interface{}, req *SimulationRequest) (string, bool) {
	msg := "No problem found in json file" // Initialize msg to presumed success.

	showInput, ok := getLeafValue(jsonTable, "show_input_bool")
	if !ok {
		req.ShowInput = false // default to false if this field is missing
	} else {
		req.ShowInput, ok = showInput.(bool)
		if !ok {
			msg = "show_input_bool: is not a bool"
			return msg, false
		}
	}

	saveResult, ok := getLeafValue(jsonTable, "save_result_bool")
	if ok {
		req.SaveResult, ok = saveResult.(bool)
		if !ok {
			msg = "save_result_bool: is not a bool"
			return msg, false
		}
	}

	windowSize, ok := getLeafValue(jsonTable, "window_size_pixels")
	if !ok {
		req.WindowSizePixels = 500 // Default to 500 pixels if this field is missing
	} else {
		wSize, ok := windowSize.(float64)
		if !ok {
			msg = "window_size_pixels: is not a float64"
			return msg, false
		}
		req.WindowSizePixels = int(wSize)
	}

	title, ok := getLeafValue(jsonTable, "title")
	if ok {
		req.Title, ok = title.(string)
		if !ok {
			msg = "title: is not a string"
			return msg, false
		}
	}

	mode, ok := getLeafValue(jsonTable, "mode")
	if !ok {
		req.Mode = "1d"
	} else {
		req.Mode, ok = mode.(string)
		if !ok {
			msg = "mode: is not a string"
			return msg, false
		}
	}
	switch req.Mode {
	case "1d", "2d", "dft":
	default:
		msg = fmt.Sprintf("mode: %q is not one of \"1d\", \"2d\" or \"dft\"", req.Mode)
		return msg, false
	}

	folder, ok := getLeafValue(jsonTable, "output_folder")
	if !ok {
		req.OutputFolder = "."
	} else {
		req.OutputFolder, ok = folder.(string)
		if !ok {
			msg = "output_folder: is not a string"
			return msg, false
		}
	}

	// A spectrum file takes precedence over wavelengths_nm
	filePath, ok := getLeafValue(jsonTable, "path_to_spectrum_file")
	if ok {
		req.PathToSpectrum, ok = filePath.(string)
		if !ok {
			msg = "path_to_spectrum_file: is not a string"
			return msg, false
		}
	}

	wavelengths, found, problem := getFloatArray(jsonTable, "wavelengths_nm")
	if problem != "" {
		return problem, false
	}
	if found {
		if len(wavelengths) == 0 {
			msg = "wavelengths_nm: is empty"
			return msg, false
		}
		for _, l := range wavelengths {
			if l <= 0 {
				msg = "wavelengths_nm: values must be positive"
				return msg, false
			}
		}
		req.WavelengthsNm = wavelengths
		req.Weights = make([]float64, len(wavelengths))
		for i := range req.Weights {
			req.Weights[i] = 1
		}
	} else if req.PathToSpectrum == "" {
		msg = "wavelengths_nm: not found"
		return msg, false
	}

	pitch, ok := getLeafValue(jsonTable, "pitch_um")
	if !ok {
		msg = "pitch_um: not found"
		return msg, false
	}
	req.PitchUm, ok = pitch.(float64)
	if !ok {
		msg = "pitch_um: is not a float64"
		return msg, false
	}

	pitchY, ok := getLeafValue(jsonTable, "pitch_y_um")
	if !ok {
		req.PitchYUm = req.PitchUm // square pixels unless told otherwise
	} else {
		req.PitchYUm, ok = pitchY.(float64)
		if !ok {
			msg = "pitch_y_um: is not a float64"
			return msg, false
		}
	}

	width, ok := getLeafValue(jsonTable, "mirror_width_um")
	if !ok {
		req.MirrorWidthUm = req.PitchUm // 100% fill factor
	} else {
		req.MirrorWidthUm, ok = width.(float64)
		if !ok {
			msg = "mirror_width_um: is not a float64"
			return msg, false
		}
	}

	widthY, ok := getLeafValue(jsonTable, "mirror_width_y_um")
	if !ok {
		req.MirrorWidthYUm = req.MirrorWidthUm * req.PitchYUm / req.PitchUm
	} else {
		req.MirrorWidthYUm, ok = widthY.(float64)
		if !ok {
			msg = "mirror_width_y_um: is not a float64"
			return msg, false
		}
	}

	if req.PitchUm <= 0 || req.PitchYUm <= 0 {
		msg = "pitch_um: must be positive"
		return msg, false
	}
	if req.MirrorWidthUm > req.PitchUm || req.MirrorWidthYUm > req.PitchYUm {
		msg = "mirror_width_um: must not exceed the pitch"
		return msg, false
	}

	gammaOn, ok := getLeafValue(jsonTable, "gamma_on_deg")
	if !ok {
		req.GammaOnDeg = 12 // typical DMD tilt
	} else {
		req.GammaOnDeg, ok = gammaOn.(float64)
		if !ok {
			msg = "gamma_on_deg: is not a float64"
			return msg, false
		}
	}

	gammaOff, ok := getLeafValue(jsonTable, "gamma_off_deg")
	if !ok {
		req.GammaOffDeg = -req.GammaOnDeg
	} else {
		req.GammaOffDeg, ok = gammaOff.(float64)
		if !ok {
			msg = "gamma_off_deg: is not a float64"
			return msg, false
		}
	}

	// Check to see if a pattern group is present. Without one every mirror is ON.
	_, ok = getLeafValue(jsonTable, "pattern")
	req.Pattern = PatternRequest{Kind: "on", Nx: 10, Ny: 10, Period: 2, Seed: 1}
	if ok {
		imagePath, ok := getLeafValue(jsonTable, "pattern", "path_to_image")
		if ok {
			req.Pattern.PathToImage, ok = imagePath.(string)
			if !ok {
				msg = "pattern.path_to_image: is not a string"
				return msg, false
			}
		}

		kind, ok := getLeafValue(jsonTable, "pattern", "kind")
		if ok {
			req.Pattern.Kind, ok = kind.(string)
			if !ok {
				msg = "pattern.kind: is not a string"
				return msg, false
			}
		}

		for _, field := range []struct {
			key string
			dst *int
		}{
			{"nx", &req.Pattern.Nx},
			{"ny", &req.Pattern.Ny},
			{"period", &req.Pattern.Period},
		} {
			v, ok := getLeafValue(jsonTable, "pattern", field.key)
			if !ok {
				continue
			}
			value, ok := v.(float64)
			if !ok {
				msg = fmt.Sprintf("pattern.%s: is not a float64", field.key)
				return msg, false
			}
			if value < 1 {
				msg = fmt.Sprintf("pattern.%s: must be at least 1", field.key)
				return msg, false
			}
			*field.dst = int(value)
		}

		for _, field := range []struct {
			key string
			dst *float64
		}{
			{"x_diam", &req.Pattern.XDiam},
			{"y_diam", &req.Pattern.YDiam},
			{"angle_deg", &req.Pattern.AngleDeg},
		} {
			v, ok := getLeafValue(jsonTable, "pattern", field.key)
			if !ok {
				continue
			}
			*field.dst, ok = v.(float64)
			if !ok {
				msg = fmt.Sprintf("pattern.%s: is not a float64", field.key)
				return msg, false
			}
		}

		seed, ok := getLeafValue(jsonTable, "pattern", "seed")
		if ok {
			value, ok := seed.(float64)
			if !ok {
				msg = "pattern.seed: is not a float64"
				return msg, false
			}
			req.Pattern.Seed = uint64(value)
		}
	}
	if req.Pattern.PathToImage == "" {
		switch req.Pattern.Kind {
		case "random", "on", "off", "stripes":
		case "ellipse":
			if req.Pattern.XDiam <= 0 || req.Pattern.YDiam <= 0 {
				msg = "pattern.x_diam and pattern.y_diam: must be positive for an ellipse"
				return msg, false
			}
		default:
			msg = fmt.Sprintf("pattern.kind: %q is not one of random, on, off, stripes or ellipse", req.Pattern.Kind)
			return msg, false
		}
	}

	angles, found, problem := getFloatArray(jsonTable, "input_angles_deg")
	if problem != "" {
		return problem, false
	}
	if !found {
		msg = "input_angles_deg: not found"
		return msg, false
	}
	if req.Mode == "1d" && len(angles) == 0 {
		msg = "input_angles_deg: is empty"
		return msg, false
	}
	if req.Mode != "1d" && len(angles) != 2 {
		msg = "input_angles_deg: must be [theta_x, theta_y] in modes 2d and dft"
		return msg, false
	}
	req.InputAnglesDeg = angles

	// Check to see if an output_offset_deg group is present --- it is optional
	_, ok = getLeafValue(jsonTable, "output_offset_deg")
	if ok {
		rng := &OffsetRange{}
		for _, field := range []struct {
			key string
			dst *float64
		}{
			{"min", &rng.MinDeg},
			{"max", &rng.MaxDeg},
		} {
			v, ok := getLeafValue(jsonTable, "output_offset_deg", field.key)
			if !ok {
				msg = fmt.Sprintf("output_offset_deg.%s: not found", field.key)
				return msg, false
			}
			*field.dst, ok = v.(float64)
			if !ok {
				msg = fmt.Sprintf("output_offset_deg.%s: is not a float64", field.key)
				return msg, false
			}
		}

		numPts, ok := getLeafValue(jsonTable, "output_offset_deg", "num_points")
		if !ok {
			msg = "output_offset_deg.num_points: not found"
			return msg, false
		}
		numberOfPoints, ok := numPts.(float64)
		if !ok {
			msg = "output_offset_deg.num_points: is not a float64"
			return msg, false
		}
		rng.NumPoints = int(numberOfPoints)
		if rng.NumPoints < 2 || rng.MaxDeg <= rng.MinDeg {
			msg = "output_offset_deg: needs max > min and at least 2 points"
			return msg, false
		}
		req.OutputOffset = rng
	}

	numOrders, ok := getLeafValue(jsonTable, "num_diffraction_orders")
	if ok {
		value, ok := numOrders.(float64)
		if !ok {
			msg = "num_diffraction_orders: is not a float64"
			return msg, false
		}
		req.NumDiffOrders = int(value)
	}

	order, found, problem := getFloatArray(jsonTable, "dft_order")
	if problem != "" {
		return problem, false
	}
	if found {
		if len(order) != 2 {
			msg = "dft_order: must be [nx, ny]"
			return msg, false
		}
		req.DFTOrder = [2]int{int(order[0]), int(order[1])}
		req.DFTOrderGiven = true
	}

	workers, ok := getLeafValue(jsonTable, "workers")
	if ok {
		value, ok := workers.(float64)
		if !ok {
			msg = "workers: is not a float64"
			return msg, false
		}
		req.Workers = int(value)
	}

	timeout, ok := getLeafValue(jsonTable, "timeout_secs")
	if ok {
		req.TimeoutSecs, ok = timeout.(float64)
		if !ok {
			msg = "timeout_secs: is not a float64"
			return msg, false
		}
	}

	return msg, true
}
